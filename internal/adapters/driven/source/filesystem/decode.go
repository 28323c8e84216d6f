package filesystem

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// Supported record file extensions.
const (
	extJSON = ".json"
	extYAML = ".yaml"
	extYML  = ".yml"
)

// isRecordFile reports whether path has a supported extension.
func isRecordFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extJSON, extYAML, extYML:
		return true
	default:
		return false
	}
}

// decodeFile parses the records held in a file's contents.
func decodeFile(path string, data []byte) ([]domain.RawRecord, error) {
	if strings.ToLower(filepath.Ext(path)) == extJSON {
		return decodeJSON(data)
	}
	return decodeYAML(data)
}

func decodeJSON(data []byte) ([]domain.RawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var recs []domain.RawRecord
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("decode record array: %w", err)
		}
		return recs, nil
	}
	var rec domain.RawRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return []domain.RawRecord{rec}, nil
}

// decodeYAML reads every document of a YAML stream. Documents are
// converted to JSON so they share the record wire format.
func decodeYAML(data []byte) ([]domain.RawRecord, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var recs []domain.RawRecord
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode yaml document %d: %w", len(recs)+1, err)
		}
		if doc == nil {
			continue
		}

		asJSON, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert yaml document %d: %w", len(recs)+1, err)
		}
		var rec domain.RawRecord
		if err := json.Unmarshal(asJSON, &rec); err != nil {
			return nil, fmt.Errorf("decode yaml document %d: %w", len(recs)+1, err)
		}
		recs = append(recs, rec)
	}
}
