// Package mcp provides an MCP (Model Context Protocol) server adapter for
// buildboard. It lets AI assistants browse, filter and compare builds.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ErrMissingManifestService is returned when the manifest service is not provided.
var ErrMissingManifestService = errors.New("mcp: manifest service is required")
