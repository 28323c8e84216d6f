package domain

import (
	"encoding/json"
	"sort"
)

// Category is a facet classification category.
type Category string

// The fixed set of aggregated categories.
const (
	CategoryOS           Category = "os"
	CategoryVersion      Category = "version"
	CategoryArchitecture Category = "architecture"
	CategoryLicense      Category = "license"
	CategoryToyVariant   Category = "toyVariant"
)

// Categories returns the aggregated categories in canonical order.
func Categories() []Category {
	return []Category{
		CategoryOS,
		CategoryVersion,
		CategoryArchitecture,
		CategoryLicense,
		CategoryToyVariant,
	}
}

// IsValid returns true if the category is one of the aggregated categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryOS, CategoryVersion, CategoryArchitecture, CategoryLicense, CategoryToyVariant:
		return true
	default:
		return false
	}
}

// categoryValue returns the build's value for an aggregated category.
func categoryValue(b *Build, c Category) string {
	if c == CategoryVersion && b.Problem() {
		return ""
	}
	return b.Value(Field(c))
}

// FacetIndex maps each category to the set of distinct values observed.
// It records presence only, never which builds contributed a value.
//
// A FacetIndex is immutable once built: Combine and Singleton always
// return fresh values and never modify their inputs. The zero value and
// nil are both the empty index.
type FacetIndex struct {
	sets map[Category]map[string]struct{}
}

// NewFacetIndex creates a FacetIndex from explicit value lists.
// Unknown categories and empty values are ignored.
func NewFacetIndex(values map[Category][]string) *FacetIndex {
	idx := &FacetIndex{sets: make(map[Category]map[string]struct{})}
	for c, vs := range values {
		if !c.IsValid() {
			continue
		}
		for _, v := range vs {
			idx.add(c, v)
		}
	}
	return idx
}

// Singleton returns the FacetIndex of a single build: each category
// maps to a one-element set holding the build's value, or has no entry
// when the value is unset.
func Singleton(b *Build) *FacetIndex {
	idx := &FacetIndex{sets: make(map[Category]map[string]struct{})}
	for _, c := range Categories() {
		idx.add(c, categoryValue(b, c))
	}
	return idx
}

// Combine returns the per-category union of a and b.
// The operation is associative, commutative and idempotent, so partial
// indexes over any partition of the corpus merge to the same result.
func Combine(a, b *FacetIndex) *FacetIndex {
	out := &FacetIndex{sets: make(map[Category]map[string]struct{})}
	for _, src := range []*FacetIndex{a, b} {
		if src == nil {
			continue
		}
		for c, set := range src.sets {
			for v := range set {
				out.add(c, v)
			}
		}
	}
	return out
}

func (f *FacetIndex) add(c Category, v string) {
	if v == "" {
		return
	}
	set, ok := f.sets[c]
	if !ok {
		set = make(map[string]struct{})
		f.sets[c] = set
	}
	set[v] = struct{}{}
}

// Has reports whether value was observed for category.
func (f *FacetIndex) Has(c Category, value string) bool {
	if f == nil {
		return false
	}
	_, ok := f.sets[c][value]
	return ok
}

// Len returns the number of distinct values for category.
func (f *FacetIndex) Len(c Category) int {
	if f == nil {
		return 0
	}
	return len(f.sets[c])
}

// Values returns the values for category, sorted ascending.
func (f *FacetIndex) Values(c Category) []string {
	if f == nil {
		return []string{}
	}
	values := make([]string, 0, len(f.sets[c]))
	for v := range f.sets[c] {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Sorted returns every category mapped to its sorted values.
// Categories without values map to an empty slice.
func (f *FacetIndex) Sorted() map[Category][]string {
	out := make(map[Category][]string, len(Categories()))
	for _, c := range Categories() {
		out[c] = f.Values(c)
	}
	return out
}

// Equal reports whether both indexes hold exactly the same values.
func (f *FacetIndex) Equal(other *FacetIndex) bool {
	for _, c := range Categories() {
		if f.Len(c) != other.Len(c) {
			return false
		}
		if f == nil {
			continue
		}
		for v := range f.sets[c] {
			if !other.Has(c, v) {
				return false
			}
		}
	}
	return true
}

// MarshalJSON encodes the index as {category: [sorted values]}.
func (f *FacetIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Sorted())
}

// FacetCatalog is the presentation form of a FacetIndex snapshot.
type FacetCatalog struct {
	// Facets maps every category to its sorted values.
	Facets map[Category][]string `json:"facets"`

	// Fingerprint identifies the snapshot content.
	// Equal fingerprints imply equal facets.
	Fingerprint string `json:"fingerprint"`
}

// Partition is a cached partial aggregate over a subset of the corpus.
type Partition struct {
	// Key identifies the subset (e.g. a product/version directory).
	Key string

	// Fingerprint identifies the membership the aggregate was computed from.
	Fingerprint string

	// Builds is the number of builds in the subset.
	Builds int

	// Facets is the aggregate over the subset.
	Facets *FacetIndex
}
