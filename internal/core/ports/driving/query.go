package driving

import (
	"context"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// QueryService answers filtered, paginated build listings.
type QueryService interface {
	// List returns one window of the builds matching filter, most
	// recently modified first. Problem builds are never listed.
	// skip must be >= 0 and limit > 0; limit is clamped to the maximum.
	List(ctx context.Context, filter domain.FilterCriteria, skip, limit int) (*domain.BuildPage, error)

	// Problems returns the builds with no extractable full version.
	Problems(ctx context.Context) ([]domain.Build, error)

	// FacetCatalog returns the current facet values, sorted.
	FacetCatalog(ctx context.Context) (*domain.FacetCatalog, error)
}
