package driven

import (
	"context"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// PartitionCache persists partial facet aggregates between rebuilds.
// A cached partition is reused only when its fingerprint matches the
// current membership of the partition.
type PartitionCache interface {
	// Get retrieves the cached partition for key.
	// Returns nil and no error on a miss.
	Get(ctx context.Context, key string) (*domain.Partition, error)

	// Put stores or replaces a partition.
	Put(ctx context.Context, part *domain.Partition) error

	// Close releases resources.
	Close() error
}
