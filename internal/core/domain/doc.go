// Package domain defines the core business entities for buildboard.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawRecord: A persisted artifact metadata document
//   - Build: A normalised build artifact
//   - FacetIndex: The distinct values observed per classification category
//   - FilterCriteria: Accepted values per field for listing queries
//   - Manifest / ComparisonResult: Component lists and their structural diff
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
