package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Field is a build attribute that listings can be filtered on.
// Every aggregated Category is a Field; Extension is filterable but
// not aggregated.
type Field string

// Filterable fields.
const (
	FieldOS           = Field(CategoryOS)
	FieldVersion      = Field(CategoryVersion)
	FieldArchitecture = Field(CategoryArchitecture)
	FieldLicense      = Field(CategoryLicense)
	FieldToyVariant   = Field(CategoryToyVariant)
	FieldExtension    Field = "extension"
)

// toyFlagKey is the filter key of the "has a toy variant" flag.
const toyFlagKey = "toy"

// fieldAliases maps accepted filter keys to fields.
// The short names match the keys of the web listing.
var fieldAliases = map[string]Field{
	"os":           FieldOS,
	"version":      FieldVersion,
	"architecture": FieldArchitecture,
	"arch":         FieldArchitecture,
	"license":      FieldLicense,
	"toyVariant":   FieldToyVariant,
	"extension":    FieldExtension,
	"ext":          FieldExtension,
}

// ParseField resolves a filter key to a Field.
func ParseField(key string) (Field, bool) {
	f, ok := fieldAliases[key]
	return f, ok
}

// FilterCriteria selects builds for a listing.
// A build passes iff, for every constrained field, its value is one of the
// accepted values (OR within a field, AND across fields), and, when ToyOnly
// is set, it has a toy variant. The zero value accepts every build.
type FilterCriteria struct {
	fields map[Field]map[string]struct{}

	// ToyOnly restricts the listing to builds with a toy variant.
	ToyOnly bool
}

// NewFilter creates an empty filter.
func NewFilter() FilterCriteria {
	return FilterCriteria{}
}

// With returns a copy of the filter with values added to field's
// accepted set.
func (f FilterCriteria) With(field Field, values ...string) FilterCriteria {
	out := FilterCriteria{
		fields:  make(map[Field]map[string]struct{}, len(f.fields)+1),
		ToyOnly: f.ToyOnly,
	}
	for k, set := range f.fields {
		cp := make(map[string]struct{}, len(set))
		for v := range set {
			cp[v] = struct{}{}
		}
		out.fields[k] = cp
	}
	if len(values) == 0 {
		return out
	}
	set, ok := out.fields[field]
	if !ok {
		set = make(map[string]struct{}, len(values))
		out.fields[field] = set
	}
	for _, v := range values {
		set[v] = struct{}{}
	}
	return out
}

// WithToyOnly returns a copy of the filter with the toy flag set.
func (f FilterCriteria) WithToyOnly() FilterCriteria {
	out := f.With("")
	out.ToyOnly = true
	return out
}

// Fields returns the constrained fields in sorted order.
func (f FilterCriteria) Fields() []Field {
	fields := make([]Field, 0, len(f.fields))
	for k := range f.fields {
		fields = append(fields, k)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Accepted returns the sorted accepted values for field.
func (f FilterCriteria) Accepted(field Field) []string {
	values := make([]string, 0, len(f.fields[field]))
	for v := range f.fields[field] {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// IsEmpty returns true if the filter accepts every build.
func (f FilterCriteria) IsEmpty() bool {
	return len(f.fields) == 0 && !f.ToyOnly
}

// Matches reports whether b passes the filter.
func (f FilterCriteria) Matches(b *Build) bool {
	for field, set := range f.fields {
		if _, ok := set[b.Value(field)]; !ok {
			return false
		}
	}
	if f.ToyOnly && b.ToyVariant == "" {
		return false
	}
	return true
}

// String returns the canonical JSON form of the filter.
func (f FilterCriteria) String() string {
	data, err := f.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(data)
}

// MarshalJSON encodes the filter as {field: [values], "toy": true}.
func (f FilterCriteria) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.fields)+1)
	for field := range f.fields {
		out[string(field)] = f.Accepted(field)
	}
	if f.ToyOnly {
		out[toyFlagKey] = true
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a filter, see ParseFilter.
// A JSON null leaves f unchanged.
func (f *FilterCriteria) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	parsed, err := ParseFilter(string(data))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFilter parses the JSON form of FilterCriteria: an object mapping
// field names to arrays of accepted values, plus an optional "toy": true
// flag. "toy" with an array value is treated as the toyVariant field.
// Empty input is the empty filter. Anything else that does not fit this
// shape fails with ErrInvalidFilter.
func ParseFilter(data string) (FilterCriteria, error) {
	if strings.TrimSpace(data) == "" {
		return FilterCriteria{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return FilterCriteria{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if raw == nil {
		return FilterCriteria{}, fmt.Errorf("%w: filter must be an object", ErrInvalidFilter)
	}

	f := FilterCriteria{}
	for key, value := range raw {
		if string(bytes.TrimSpace(value)) == "null" {
			return FilterCriteria{}, fmt.Errorf("%w: field %q is null", ErrInvalidFilter, key)
		}
		if key == toyFlagKey {
			var flag bool
			if err := json.Unmarshal(value, &flag); err == nil {
				f.ToyOnly = flag
				continue
			}
			key = string(FieldToyVariant)
		}

		field, ok := ParseField(key)
		if !ok {
			return FilterCriteria{}, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, key)
		}

		var values []string
		if err := json.Unmarshal(value, &values); err != nil {
			return FilterCriteria{}, fmt.Errorf("%w: field %q must be an array of strings", ErrInvalidFilter, key)
		}
		f = f.With(field, values...)
	}
	return f, nil
}
