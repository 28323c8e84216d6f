package driving

import (
	"context"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// ComparisonService diffs the manifests of two builds.
type ComparisonService interface {
	// Compare returns the component differences between builds a and b.
	// References are build IDs or filenames.
	// Returns domain.ErrNotFound if either build does not exist.
	Compare(ctx context.Context, a, b string) (*domain.ComparisonResult, error)
}

// ManifestService resolves build references to manifests.
type ManifestService interface {
	// Get returns the manifest of a build, resolving ref as an ID first,
	// then as a filename.
	// Returns domain.ErrNotFound if no build matches.
	Get(ctx context.Context, ref string) (*domain.Manifest, error)
}
