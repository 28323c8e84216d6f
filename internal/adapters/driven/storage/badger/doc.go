// Package badger provides a BadgerDB-backed partition cache.
//
// Partial facet aggregates are stored one key per partition, encoded with
// deterministic CBOR and compressed with zstd. The cache lives beside the
// corpus database (~/.buildboard/cache by default) and survives restarts,
// so a rebuild after a restart only recomputes partitions that changed.
package badger
