package domain

import "time"

// Build is one catalogued build artifact.
// It is derived on read from a RawRecord and never stored on its own.
// JSON field names follow the build listing consumed by the browser UI.
type Build struct {
	// ID is the opaque corpus key of the backing record.
	ID string `json:"id"`

	// Filename is the trailing path segment of ID.
	// Empty when ID has no path separator.
	Filename string `json:"filename,omitempty"`

	// Product is the canonical product marker.
	Product string `json:"product"`

	// Extension is the filename suffix after the last dot.
	Extension string `json:"ext,omitempty"`

	// OS is the operating system derived from the extension and filename.
	OS string `json:"os,omitempty"`

	// ToyVariant is the experimental build marker embedded in the filename.
	ToyVariant string `json:"toy,omitempty"`

	// FullVersion is the version including the build number (e.g. "2.0.0-1976").
	FullVersion string `json:"fullversion,omitempty"`

	// Version is the release version (prefix of FullVersion).
	Version string `json:"version,omitempty"`

	// Architecture is the target architecture (e.g. "x86_64").
	Architecture string `json:"arch,omitempty"`

	// License is the license edition (e.g. "enterprise").
	License string `json:"license,omitempty"`

	// SizeBytes is the artifact size.
	SizeBytes int64 `json:"size"`

	// ModifiedAt is when the artifact was last modified.
	ModifiedAt time.Time `json:"date"`

	// Extensions holds unrecognised metadata fields verbatim.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Problem reports whether the build has no extractable full version.
// Problem builds are kept for diagnostics but excluded from listings
// and from the version facet.
func (b *Build) Problem() bool {
	return b.FullVersion == ""
}

// Value returns the build's value for a filterable field.
// Returns empty string for unknown fields or unset values.
func (b *Build) Value(field Field) string {
	switch field {
	case FieldOS:
		return b.OS
	case FieldVersion:
		return b.Version
	case FieldArchitecture:
		return b.Architecture
	case FieldLicense:
		return b.License
	case FieldToyVariant:
		return b.ToyVariant
	case FieldExtension:
		return b.Extension
	default:
		return ""
	}
}

// Before reports whether b sorts before other in listing order:
// most recently modified first, ties broken by ascending ID.
func (b *Build) Before(other *Build) bool {
	if !b.ModifiedAt.Equal(other.ModifiedAt) {
		return b.ModifiedAt.After(other.ModifiedAt)
	}
	return b.ID < other.ID
}

// BuildPage is one window of a filtered, ordered build listing.
type BuildPage struct {
	// Builds is the window, in listing order.
	Builds []Build `json:"builds"`

	// HasMore is true iff more matching builds exist beyond the window.
	HasMore bool `json:"hasMore"`

	// Total is the number of builds matching the filter.
	Total int `json:"total"`

	// Skip is the number of matching builds skipped before the window.
	Skip int `json:"skip"`

	// Limit is the effective window size after clamping.
	Limit int `json:"limit"`
}
