package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
)

// IngestOrchestrator moves raw records from sources into the corpus.
type IngestOrchestrator interface {
	// Ingest performs a full scan of source.
	// Returns domain.ErrIngestInProgress if another ingest is running.
	Ingest(ctx context.Context, source driven.RecordSource) error

	// Watch ingests records from source as they appear.
	// Blocks until ctx is cancelled.
	Watch(ctx context.Context, source driven.RecordSource) error

	// Reaggregate rebuilds the facet index from the whole corpus.
	Reaggregate(ctx context.Context) error

	// Status returns ingestion counters.
	Status() IngestStatus
}

// IngestStatus represents the state of ingestion.
type IngestStatus struct {
	// Running indicates if a scan is currently in progress.
	Running bool `json:"running"`

	// RecordsIngested is the count of records stored.
	RecordsIngested int `json:"recordsIngested"`

	// RecordsRejected is the count of records that were not builds.
	RecordsRejected int `json:"recordsRejected"`

	// ErrorCount is the number of errors encountered.
	ErrorCount int `json:"errorCount"`

	// LastScan is when the last scan finished.
	LastScan time.Time `json:"lastScan"`
}

// MessageFeed carries progress notifications to operators.
type MessageFeed interface {
	// Post records a message. Never blocks; messages may be dropped
	// under overload.
	Post(level domain.MessageLevel, text string)

	// Messages returns the retained messages, oldest first.
	Messages() []domain.Message
}
