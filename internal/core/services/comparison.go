package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
)

// Ensure ComparisonService implements the interface.
var _ driving.ComparisonService = (*ComparisonService)(nil)

// ComparisonService diffs build manifests. Results are never cached.
type ComparisonService struct {
	manifests driving.ManifestService
}

// NewComparisonService creates a comparison service.
func NewComparisonService(manifests driving.ManifestService) *ComparisonService {
	return &ComparisonService{manifests: manifests}
}

// Compare loads both manifests concurrently and diffs them.
func (s *ComparisonService) Compare(ctx context.Context, a, b string) (*domain.ComparisonResult, error) {
	var ma, mb *domain.Manifest

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.manifests.Get(gctx, a)
		if err != nil {
			return fmt.Errorf("load %q: %w", a, err)
		}
		ma = m
		return nil
	})
	g.Go(func() error {
		m, err := s.manifests.Get(gctx, b)
		if err != nil {
			return fmt.Errorf("load %q: %w", b, err)
		}
		mb = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return domain.Diff(ma, mb), nil
}
