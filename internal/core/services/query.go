package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
	"github.com/custodia-labs/buildboard/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// DefaultMaxLimit caps listing page sizes when none is configured.
const DefaultMaxLimit = 500

// QueryService answers listing and facet queries.
type QueryService struct {
	corpus     *BuildCorpus
	aggregator *Aggregator
	maxLimit   int

	index atomic.Pointer[postingsIndex]
	group singleflight.Group
}

// NewQueryService creates a query service.
// A non-positive maxLimit selects DefaultMaxLimit.
func NewQueryService(corpus *BuildCorpus, aggregator *Aggregator, maxLimit int) *QueryService {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &QueryService{
		corpus:     corpus,
		aggregator: aggregator,
		maxLimit:   maxLimit,
	}
}

// List returns one window of the non-problem builds matching filter.
func (s *QueryService) List(ctx context.Context, filter domain.FilterCriteria, skip, limit int) (*domain.BuildPage, error) {
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative, got %d", domain.ErrInvalidInput, skip)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidInput, limit)
	}
	limit = min(limit, s.maxLimit)

	idx, err := s.currentIndex(ctx)
	if err != nil {
		return nil, err
	}

	matched := idx.match(filter)
	builds, hasMore := idx.window(matched, skip, limit)
	return &domain.BuildPage{
		Builds:  builds,
		HasMore: hasMore,
		Total:   int(matched.GetCardinality()),
		Skip:    skip,
		Limit:   limit,
	}, nil
}

// Problems returns builds without an extractable full version.
func (s *QueryService) Problems(ctx context.Context) ([]domain.Build, error) {
	idx, err := s.currentIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Build, len(idx.problems))
	copy(out, idx.problems)
	return out, nil
}

// FacetCatalog returns the aggregator snapshot in sorted form.
func (s *QueryService) FacetCatalog(ctx context.Context) (*domain.FacetCatalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := s.aggregator.Snapshot()
	return &domain.FacetCatalog{
		Facets:      snap.Sorted(),
		Fingerprint: Fingerprint(snap),
	}, nil
}

// currentIndex returns an index at least as new as the corpus revision.
// Concurrent rebuilds for the same growth are collapsed into one.
func (s *QueryService) currentIndex(ctx context.Context) (*postingsIndex, error) {
	rev, err := s.corpus.Revision(ctx)
	if err != nil {
		return nil, err
	}
	if cur := s.index.Load(); cur != nil && cur.revision >= rev {
		return cur, nil
	}

	// The shared rebuild ignores caller cancellation; snapshot bounds it
	// by the accessor timeout.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("postings", func() (any, error) {
		if cur := s.index.Load(); cur != nil && cur.revision >= rev {
			return cur, nil
		}
		snap, err := s.corpus.snapshot(flightCtx)
		if err != nil {
			return nil, err
		}
		idx := newPostingsIndex(snap)
		s.storeIndex(idx)
		logger.Debug("Rebuilt postings index at revision %d: %d listed, %d problems",
			idx.revision, len(idx.listed), len(idx.problems))
		return idx, nil
	})

	var v any
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v = res.Val
	}

	idx, ok := v.(*postingsIndex)
	if !ok {
		return nil, fmt.Errorf("unexpected postings index type %T", v)
	}
	return idx, nil
}

// storeIndex publishes idx unless a newer index is already current.
func (s *QueryService) storeIndex(idx *postingsIndex) {
	for {
		cur := s.index.Load()
		if cur != nil && cur.revision >= idx.revision {
			return
		}
		if s.index.CompareAndSwap(cur, idx) {
			return
		}
	}
}
