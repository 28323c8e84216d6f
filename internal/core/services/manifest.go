package services

import (
	"context"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
)

// Ensure ManifestService implements the interface.
var _ driving.ManifestService = (*ManifestService)(nil)

// ManifestService resolves build references to manifests.
type ManifestService struct {
	corpus *BuildCorpus
}

// NewManifestService creates a manifest service.
func NewManifestService(corpus *BuildCorpus) *ManifestService {
	return &ManifestService{corpus: corpus}
}

// Get returns the manifest of the build ref resolves to.
func (s *ManifestService) Get(ctx context.Context, ref string) (*domain.Manifest, error) {
	rec, err := s.corpus.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return domain.NewManifest(*rec), nil
}
