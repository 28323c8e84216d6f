package driven

import (
	"context"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// RecordSource delivers raw records from outside the system
// (e.g. a directory of scraped metadata documents).
type RecordSource interface {
	// Name identifies the source in logs and messages.
	Name() string

	// Scan delivers every record currently available.
	// Both channels are closed when the scan finishes. Errors on the error
	// channel concern single records and do not abort the scan.
	Scan(ctx context.Context) (<-chan domain.RawRecord, <-chan error)

	// Watch delivers records as they appear until ctx is cancelled.
	// Returns domain.ErrNotImplemented if the source cannot be watched.
	Watch(ctx context.Context) (<-chan domain.RawRecord, <-chan error, error)

	// Close releases resources.
	Close() error
}
