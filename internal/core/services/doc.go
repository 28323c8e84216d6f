// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The facet aggregator, the roaring-bitmap query engine, the comparison
// engine, the ingest orchestrator, the message feed and the scheduler all
// live here. Services are pure Go with no CGO.
package services
