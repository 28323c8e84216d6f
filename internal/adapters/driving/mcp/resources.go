package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for buildboard resources.
	uriScheme = "buildboard://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the facet catalog.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "facets",
		Name:        "facets",
		Description: "Distinct values of every filterable category",
		MIMEType:    "application/json",
	}, s.handleFacetsResource)

	// Template for build manifests.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "manifests/{buildId}",
		Name:        "build-manifest",
		Description: "Component manifest and raw record of a build; buildId is a filename or a percent-encoded id",
		MIMEType:    "application/json",
	}, s.handleManifestResource)
}

// handleFacetsResource returns the facet catalog.
func (s *Server) handleFacetsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	catalog, err := s.ports.Query.FacetCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading facets: %w", err)
	}
	return jsonResource(req.Params.URI, catalog)
}

// handleManifestResource returns the manifest of a single build.
func (s *Server) handleManifestResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract buildId from URI: buildboard://manifests/{buildId}
	ref := extractBuildRef(req.Params.URI)
	if ref == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	manifest, err := s.ports.Manifests.Get(ctx, ref)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting manifest: %w", err)
	}
	return jsonResource(req.Params.URI, manifest)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractBuildRef extracts the build reference from a URI like
// buildboard://manifests/{buildId}, undoing percent-encoding.
func extractBuildRef(uri string) string {
	const prefix = uriScheme + "manifests/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	ref, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return ref
}
