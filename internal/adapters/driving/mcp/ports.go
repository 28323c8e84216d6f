package mcp

import (
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query lists builds and facets.
	Query driving.QueryService

	// Manifests resolves build references to manifests.
	Manifests driving.ManifestService

	// Comparisons diffs build manifests. Optional; compare_builds is
	// only registered when set.
	Comparisons driving.ComparisonService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Manifests == nil {
		return ErrMissingManifestService
	}
	return nil
}
