package domain

import (
	"fmt"
	"sort"
	"strings"
)

// manifestKey is the user-data field holding the component manifest.
const manifestKey = "manifest"

// Component is one entry of a build manifest.
type Component struct {
	// Name identifies the component (e.g. a source project).
	Name string `json:"name"`

	// Revision is the component revision the build was produced from.
	Revision string `json:"revision"`
}

// Manifest is the component inventory of a single build.
type Manifest struct {
	// ID is the corpus key of the build.
	ID string `json:"id"`

	// Filename is the build's filename.
	Filename string `json:"filename,omitempty"`

	// Components is sorted by name.
	Components []Component `json:"components"`

	// Raw is the backing record, passed through unchanged.
	Raw RawRecord `json:"raw"`
}

// NewManifest extracts the manifest of a raw record.
// The manifest field may be a list of {"name", "revision"|"version"}
// objects or an object mapping name to revision. A missing or
// unrecognised manifest field yields no components.
func NewManifest(raw RawRecord) *Manifest {
	m := &Manifest{
		ID:         raw.ID,
		Raw:        raw,
		Components: []Component{},
	}
	if i := strings.LastIndex(raw.ID, "/"); i >= 0 {
		m.Filename = raw.ID[i+1:]
	}

	switch v := raw.UserData[manifestKey].(type) {
	case []any:
		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := scalarString(entry["name"])
			if name == "" {
				continue
			}
			rev := scalarString(entry["revision"])
			if rev == "" {
				rev = scalarString(entry["version"])
			}
			m.Components = append(m.Components, Component{Name: name, Revision: rev})
		}
	case map[string]any:
		for name, rev := range v {
			m.Components = append(m.Components, Component{Name: name, Revision: scalarString(rev)})
		}
	}

	sort.Slice(m.Components, func(i, j int) bool {
		return m.Components[i].Name < m.Components[j].Name
	})
	return m
}

// Revisions returns the manifest as a name to revision map.
// Later duplicates win.
func (m *Manifest) Revisions() map[string]string {
	out := make(map[string]string, len(m.Components))
	for _, c := range m.Components {
		out[c.Name] = c.Revision
	}
	return out
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64, int, int64, bool:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

// ChangeKind describes how a component differs between two manifests.
type ChangeKind string

// Change kinds.
const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeChanged ChangeKind = "changed"
)

// ComparedEntry is one differing component between two manifests.
type ComparedEntry struct {
	// Name is the component name.
	Name string `json:"name"`

	// Change is how the component differs.
	Change ChangeKind `json:"change"`

	// A is the revision in the first manifest, empty if absent.
	A string `json:"a,omitempty"`

	// B is the revision in the second manifest, empty if absent.
	B string `json:"b,omitempty"`
}

// ComparisonResult is the difference between two build manifests.
type ComparisonResult struct {
	// A is the resolved id of the first build.
	A string `json:"a"`

	// B is the resolved id of the second build.
	B string `json:"b"`

	// Compared lists differing components sorted by name.
	Compared []ComparedEntry `json:"compared"`

	// Empty is true iff Compared has no entries.
	Empty bool `json:"empty"`
}

// Diff compares two manifests keyed by component name.
// Comparing a manifest with itself yields an empty result.
func Diff(a, b *Manifest) *ComparisonResult {
	ra, rb := a.Revisions(), b.Revisions()
	compared := make([]ComparedEntry, 0)

	for name, revA := range ra {
		revB, ok := rb[name]
		switch {
		case !ok:
			compared = append(compared, ComparedEntry{Name: name, Change: ChangeRemoved, A: revA})
		case revA != revB:
			compared = append(compared, ComparedEntry{Name: name, Change: ChangeChanged, A: revA, B: revB})
		}
	}
	for name, revB := range rb {
		if _, ok := ra[name]; !ok {
			compared = append(compared, ComparedEntry{Name: name, Change: ChangeAdded, B: revB})
		}
	}

	sort.Slice(compared, func(i, j int) bool { return compared[i].Name < compared[j].Name })
	return &ComparisonResult{
		A:        a.ID,
		B:        b.ID,
		Compared: compared,
		Empty:    len(compared) == 0,
	}
}
