// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CorpusStore: Raw record persistence (SQLite or memory)
//   - Normaliser: Transforms raw records into builds
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PartitionCache: Cached partial aggregates (Badger). Without it every
//     rebuild recomputes all partitions.
//   - RecordSource: Delivers new records. Without it the corpus is read-only.
//   - SchedulerStore: Task state persistence. Without it task state is lost on restart.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
