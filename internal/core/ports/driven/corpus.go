package driven

import (
	"context"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// CorpusStore persists raw artifact metadata records.
// The corpus only grows: saving an existing ID replaces its record.
// Backed by SQLite or process memory.
type CorpusStore interface {
	// SaveRecord stores or replaces a record.
	SaveRecord(ctx context.Context, rec *domain.RawRecord) error

	// GetRecord retrieves a record by ID.
	// Returns domain.ErrNotFound if the record does not exist.
	GetRecord(ctx context.Context, id string) (*domain.RawRecord, error)

	// FindByFilename returns records whose ID ends in "/"+filename,
	// ordered by ID.
	FindByFilename(ctx context.Context, filename string) ([]domain.RawRecord, error)

	// ListRecords returns every record, ordered by ID.
	ListRecords(ctx context.Context) ([]domain.RawRecord, error)

	// Revision returns a counter that increases on every successful save.
	// Equal revisions imply identical content.
	Revision(ctx context.Context) (uint64, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
