package badger

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// formatVersion prefixes every stored value.
const formatVersion byte = 1

var errUnknownFormat = errors.New("unknown partition format")

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	// Core deterministic encoding: identical partitions give identical bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("badger: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("badger: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("badger: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("badger: zstd decoder initialization failed: " + err.Error())
	}
}

// partitionWire is the stored shape of a domain.Partition.
type partitionWire struct {
	Key         string              `cbor:"1,keyasint"`
	Fingerprint string              `cbor:"2,keyasint"`
	Builds      int                 `cbor:"3,keyasint"`
	Facets      map[string][]string `cbor:"4,keyasint"`
}

// encodePartition serialises part as version byte + zstd(CBOR).
func encodePartition(part *domain.Partition) ([]byte, error) {
	w := partitionWire{
		Key:         part.Key,
		Fingerprint: part.Fingerprint,
		Builds:      part.Builds,
		Facets:      make(map[string][]string),
	}
	for c, vs := range part.Facets.Sorted() {
		w.Facets[string(c)] = vs
	}

	raw, err := encMode.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode partition %q: %w", part.Key, err)
	}
	out := make([]byte, 1, 1+len(raw)/2)
	out[0] = formatVersion
	return zstdEncoder.EncodeAll(raw, out), nil
}

// decodePartition is the inverse of encodePartition.
func decodePartition(data []byte) (*domain.Partition, error) {
	if len(data) == 0 || data[0] != formatVersion {
		return nil, errUnknownFormat
	}
	raw, err := zstdDecoder.DecodeAll(data[1:], nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}

	var w partitionWire
	if err := decMode.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode partition: %w", err)
	}

	values := make(map[domain.Category][]string, len(w.Facets))
	for c, vs := range w.Facets {
		values[domain.Category(c)] = vs
	}
	return &domain.Partition{
		Key:         w.Key,
		Fingerprint: w.Fingerprint,
		Builds:      w.Builds,
		Facets:      domain.NewFacetIndex(values),
	}, nil
}
