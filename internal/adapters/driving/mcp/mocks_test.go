package mcp

import (
	"context"
	"fmt"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	page     *domain.BuildPage
	catalog  *domain.FacetCatalog
	problems []domain.Build
	err      error

	gotFilter domain.FilterCriteria
	gotSkip   int
	gotLimit  int
}

func (m *mockQueryService) List(
	_ context.Context,
	filter domain.FilterCriteria,
	skip, limit int,
) (*domain.BuildPage, error) {
	m.gotFilter, m.gotSkip, m.gotLimit = filter, skip, limit
	if m.err != nil {
		return nil, m.err
	}
	if m.page == nil {
		return &domain.BuildPage{Builds: []domain.Build{}}, nil
	}
	return m.page, nil
}

func (m *mockQueryService) Problems(_ context.Context) ([]domain.Build, error) {
	return m.problems, m.err
}

func (m *mockQueryService) FacetCatalog(_ context.Context) (*domain.FacetCatalog, error) {
	return m.catalog, m.err
}

// mockManifestService is a mock implementation of driving.ManifestService.
type mockManifestService struct {
	manifests map[string]*domain.Manifest
	err       error
}

func (m *mockManifestService) Get(_ context.Context, ref string) (*domain.Manifest, error) {
	if m.err != nil {
		return nil, m.err
	}
	if man, ok := m.manifests[ref]; ok {
		return man, nil
	}
	return nil, fmt.Errorf("build %q: %w", ref, domain.ErrNotFound)
}

// mockComparisonService is a mock implementation of driving.ComparisonService.
type mockComparisonService struct {
	result *domain.ComparisonResult
	err    error
}

func (m *mockComparisonService) Compare(_ context.Context, _, _ string) (*domain.ComparisonResult, error) {
	return m.result, m.err
}

func newTestPorts() *Ports {
	return &Ports{
		Query:       &mockQueryService{},
		Manifests:   &mockManifestService{},
		Comparisons: &mockComparisonService{},
	}
}
