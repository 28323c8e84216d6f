package driven

import (
	"context"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// Normaliser transforms raw metadata records into builds.
type Normaliser interface {
	// Normalise derives a build from a raw record.
	// Returns an error wrapping domain.ErrRejected when the record is not a
	// build of the catalogued product. Missing attributes are not errors.
	Normalise(ctx context.Context, raw *domain.RawRecord) (*domain.Build, error)
}
