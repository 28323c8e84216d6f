package services

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// postingsIndex is an inverted index over one corpus snapshot.
// Bitmap positions are ordinals into listed, so ascending iteration of a
// result bitmap yields matching builds in listing order.
type postingsIndex struct {
	revision uint64
	listed   []domain.Build
	problems []domain.Build

	all    *roaring.Bitmap
	toys   *roaring.Bitmap
	fields map[domain.Field]map[string]*roaring.Bitmap
}

// filterFields are the fields indexed for filtering.
var filterFields = []domain.Field{
	domain.FieldOS,
	domain.FieldVersion,
	domain.FieldArchitecture,
	domain.FieldLicense,
	domain.FieldToyVariant,
	domain.FieldExtension,
}

func newPostingsIndex(snap *corpusSnapshot) *postingsIndex {
	idx := &postingsIndex{
		revision: snap.revision,
		listed:   make([]domain.Build, 0, len(snap.builds)),
		problems: make([]domain.Build, 0),
		all:      roaring.New(),
		toys:     roaring.New(),
		fields:   make(map[domain.Field]map[string]*roaring.Bitmap, len(filterFields)),
	}
	for _, f := range filterFields {
		idx.fields[f] = make(map[string]*roaring.Bitmap)
	}

	for i := range snap.builds {
		b := &snap.builds[i]
		if b.Problem() {
			idx.problems = append(idx.problems, *b)
			continue
		}
		ord := uint32(len(idx.listed))
		idx.listed = append(idx.listed, *b)
		idx.all.Add(ord)
		if b.ToyVariant != "" {
			idx.toys.Add(ord)
		}
		for _, f := range filterFields {
			v := b.Value(f)
			if v == "" {
				continue
			}
			bm, ok := idx.fields[f][v]
			if !ok {
				bm = roaring.New()
				idx.fields[f][v] = bm
			}
			bm.Add(ord)
		}
	}
	return idx
}

// match returns the ordinals of listed builds passing filter.
// OR within a field, AND across fields.
func (p *postingsIndex) match(filter domain.FilterCriteria) *roaring.Bitmap {
	res := p.all.Clone()
	for _, f := range filter.Fields() {
		var union []*roaring.Bitmap
		for _, v := range filter.Accepted(f) {
			if bm, ok := p.fields[f][v]; ok {
				union = append(union, bm)
			}
		}
		if len(union) == 0 {
			return roaring.New()
		}
		res.And(roaring.FastOr(union...))
	}
	if filter.ToyOnly {
		res.And(p.toys)
	}
	return res
}

// window returns up to limit matching builds after skipping skip of them,
// and whether more remain.
func (p *postingsIndex) window(matched *roaring.Bitmap, skip, limit int) ([]domain.Build, bool) {
	total := int(matched.GetCardinality())
	if skip >= total {
		return []domain.Build{}, false
	}

	first, err := matched.Select(uint32(skip))
	if err != nil {
		return []domain.Build{}, false
	}

	out := make([]domain.Build, 0, min(limit, total-skip))
	it := matched.Iterator()
	it.AdvanceIfNeeded(first)
	for it.HasNext() && len(out) < limit {
		out = append(out, p.listed[it.Next()])
	}
	return out, skip+len(out) < total
}
