// Package sqlite provides SQLite-backed implementations of the corpus and
// scheduler stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Both stores share a single database connection:
//
//   - CorpusStore: raw artifact records and the corpus revision
//   - SchedulerStore: scheduled task state and run history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files.
//
// # Data Location
//
// By default, the database is stored at ~/.buildboard/data/corpus.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. Saves run in a transaction so
// a record and the revision it advances are committed together.
package sqlite
