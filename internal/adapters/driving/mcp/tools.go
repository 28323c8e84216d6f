package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// defaultListLimit is the page size when list_builds is called without one.
const defaultListLimit = 20

// ListBuildsInput is the input schema for the list_builds tool.
type ListBuildsInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"JSON object mapping fields (os, version, arch, license, toyVariant, ext) to accepted values, e.g. {\"arch\":[\"x86_64\"]}; add \"toy\":true for toy builds only"`
	Skip   int    `json:"skip,omitempty" jsonschema:"number of matching builds to skip"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of builds to return (default 20)"`
}

// ListBuildsOutput is the output schema for the list_builds tool.
type ListBuildsOutput struct {
	Builds  []BuildOutput `json:"builds"`
	Total   int           `json:"total"`
	HasMore bool          `json:"hasMore"`
}

// BuildOutput represents a single build.
type BuildOutput struct {
	ID          string `json:"id"`
	Filename    string `json:"filename,omitempty"`
	OS          string `json:"os,omitempty"`
	Version     string `json:"version,omitempty"`
	FullVersion string `json:"fullversion,omitempty"`
	Arch        string `json:"arch,omitempty"`
	License     string `json:"license,omitempty"`
	Toy         string `json:"toy,omitempty"`
	Ext         string `json:"ext,omitempty"`
	Size        int64  `json:"size"`
	Modified    string `json:"modified"`
}

// FilterCategoriesInput is the input schema for the filter_categories tool.
type FilterCategoriesInput struct{}

// FilterCategoriesOutput is the output schema for the filter_categories tool.
type FilterCategoriesOutput struct {
	Facets      map[string][]string `json:"facets"`
	Fingerprint string              `json:"fingerprint"`
}

// CompareBuildsInput is the input schema for the compare_builds tool.
type CompareBuildsInput struct {
	A string `json:"a" jsonschema:"first build, by id or filename"`
	B string `json:"b" jsonschema:"second build, by id or filename"`
}

// CompareBuildsOutput is the output schema for the compare_builds tool.
type CompareBuildsOutput struct {
	A        string         `json:"a"`
	B        string         `json:"b"`
	Compared []ChangeOutput `json:"compared"`
	Empty    bool           `json:"empty"`
}

// ChangeOutput is one differing component.
type ChangeOutput struct {
	Name   string `json:"name"`
	Change string `json:"change"`
	A      string `json:"a,omitempty"`
	B      string `json:"b,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_builds",
		Description: "List catalogued builds, newest first, optionally filtered by facet values",
	}, s.handleListBuilds)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "filter_categories",
		Description: "List the distinct values of every filterable category",
	}, s.handleFilterCategories)

	if s.ports.Comparisons != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "compare_builds",
			Description: "Compare the component manifests of two builds",
		}, s.handleCompareBuilds)
	}
}

// handleListBuilds handles the list_builds tool invocation.
func (s *Server) handleListBuilds(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListBuildsInput,
) (*mcp.CallToolResult, ListBuildsOutput, error) {
	filter, err := domain.ParseFilter(input.Filter)
	if err != nil {
		return nil, ListBuildsOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	page, err := s.ports.Query.List(ctx, filter, input.Skip, limit)
	if err != nil {
		return nil, ListBuildsOutput{}, err
	}

	output := ListBuildsOutput{
		Builds:  make([]BuildOutput, len(page.Builds)),
		Total:   page.Total,
		HasMore: page.HasMore,
	}
	for i := range page.Builds {
		output.Builds[i] = toBuildOutput(&page.Builds[i])
	}

	return nil, output, nil
}

// handleFilterCategories handles the filter_categories tool invocation.
func (s *Server) handleFilterCategories(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ FilterCategoriesInput,
) (*mcp.CallToolResult, FilterCategoriesOutput, error) {
	catalog, err := s.ports.Query.FacetCatalog(ctx)
	if err != nil {
		return nil, FilterCategoriesOutput{}, err
	}

	facets := make(map[string][]string, len(catalog.Facets))
	for c, values := range catalog.Facets {
		facets[string(c)] = values
	}
	return nil, FilterCategoriesOutput{Facets: facets, Fingerprint: catalog.Fingerprint}, nil
}

// handleCompareBuilds handles the compare_builds tool invocation.
func (s *Server) handleCompareBuilds(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompareBuildsInput,
) (*mcp.CallToolResult, CompareBuildsOutput, error) {
	result, err := s.ports.Comparisons.Compare(ctx, input.A, input.B)
	if err != nil {
		return nil, CompareBuildsOutput{}, err
	}

	output := CompareBuildsOutput{
		A:        result.A,
		B:        result.B,
		Compared: make([]ChangeOutput, len(result.Compared)),
		Empty:    result.Empty,
	}
	for i, e := range result.Compared {
		output.Compared[i] = ChangeOutput{Name: e.Name, Change: string(e.Change), A: e.A, B: e.B}
	}
	return nil, output, nil
}

func toBuildOutput(b *domain.Build) BuildOutput {
	return BuildOutput{
		ID:          b.ID,
		Filename:    b.Filename,
		OS:          b.OS,
		Version:     b.Version,
		FullVersion: b.FullVersion,
		Arch:        b.Architecture,
		License:     b.License,
		Toy:         b.ToyVariant,
		Ext:         b.Extension,
		Size:        b.SizeBytes,
		Modified:    b.ModifiedAt.UTC().Format(time.RFC3339),
	}
}
