package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/zeebo/blake3"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/logger"
)

// RebuildStats describes one partitioned rebuild.
type RebuildStats struct {
	// Builds is the number of builds aggregated.
	Builds int

	// Partitions is the number of partitions the corpus was split into.
	Partitions int

	// Reused is the number of partitions served from the cache.
	Reused int

	// Duration is the wall time of the rebuild.
	Duration time.Duration
}

// Aggregator maintains the facet index over the whole corpus.
//
// The current index is an immutable value behind an atomic pointer.
// Readers never block; writers publish a new index with a
// compare-and-swap loop, so concurrent Add calls never lose values.
type Aggregator struct {
	current atomic.Pointer[domain.FacetIndex]
	cache   driven.PartitionCache
	salt    string
	workers int
}

// NewAggregator creates an aggregator with an empty index.
// cache may be nil. salt is mixed into partition fingerprints and should
// change whenever normalisation would produce different builds
// (e.g. a different product marker).
func NewAggregator(cache driven.PartitionCache, salt string) *Aggregator {
	a := &Aggregator{
		cache:   cache,
		salt:    salt,
		workers: min(max(runtime.NumCPU(), 2), 16),
	}
	a.current.Store(&domain.FacetIndex{})
	return a
}

// Snapshot returns the current facet index. The value is never modified.
func (a *Aggregator) Snapshot() *domain.FacetIndex {
	return a.current.Load()
}

// Add folds builds into the current index.
func (a *Aggregator) Add(builds ...*domain.Build) {
	if len(builds) == 0 {
		return
	}
	singles := make([]*domain.FacetIndex, len(builds))
	for i, b := range builds {
		singles[i] = domain.Singleton(b)
	}
	a.publish(AggregateTree(singles))
}

func (a *Aggregator) publish(partial *domain.FacetIndex) {
	for {
		old := a.current.Load()
		if a.current.CompareAndSwap(old, domain.Combine(old, partial)) {
			return
		}
	}
}

// Rebuild recomputes the index from builds.
// Builds are partitioned by directory key, partitions are aggregated in
// parallel, and partitions whose membership fingerprint is unchanged are
// served from the cache. The merged result is combined into the current
// index so values added concurrently are kept.
func (a *Aggregator) Rebuild(ctx context.Context, builds []domain.Build) (RebuildStats, error) {
	start := time.Now()

	groups := make(map[string][]*domain.Build)
	for i := range builds {
		key := PartitionKey(builds[i].ID)
		groups[key] = append(groups[key], &builds[i])
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]*domain.FacetIndex, len(keys))
	var reused atomic.Int64

	p := pool.New().WithMaxGoroutines(a.workers).WithContext(ctx)
	for i, key := range keys {
		p.Go(func(ctx context.Context) error {
			idx, hit := a.aggregatePartition(ctx, key, groups[key])
			if hit {
				reused.Add(1)
			}
			parts[i] = idx
			return ctx.Err()
		})
	}
	if err := p.Wait(); err != nil {
		return RebuildStats{}, fmt.Errorf("aggregate partitions: %w", err)
	}

	a.publish(AggregateTree(parts))

	stats := RebuildStats{
		Builds:     len(builds),
		Partitions: len(keys),
		Reused:     int(reused.Load()),
		Duration:   time.Since(start),
	}
	logger.Debug("Rebuilt facets: %d builds, %d partitions, %d reused in %s",
		stats.Builds, stats.Partitions, stats.Reused, stats.Duration)
	return stats, nil
}

// aggregatePartition returns the aggregate of one partition and whether it
// came from the cache. Cache failures degrade to recomputation.
func (a *Aggregator) aggregatePartition(ctx context.Context, key string, members []*domain.Build) (*domain.FacetIndex, bool) {
	fp := a.partitionFingerprint(members)

	if a.cache != nil {
		cached, err := a.cache.Get(ctx, key)
		if err != nil {
			logger.Warn("Partition cache read %q: %v", key, err)
		} else if cached != nil && cached.Fingerprint == fp && cached.Facets != nil {
			return cached.Facets, true
		}
	}

	singles := make([]*domain.FacetIndex, len(members))
	for i, b := range members {
		singles[i] = domain.Singleton(b)
	}
	idx := AggregateTree(singles)

	if a.cache != nil {
		part := &domain.Partition{Key: key, Fingerprint: fp, Builds: len(members), Facets: idx}
		if err := a.cache.Put(ctx, part); err != nil {
			logger.Warn("Partition cache write %q: %v", key, err)
		}
	}
	return idx, false
}

// partitionFingerprint digests the member IDs and modification times.
func (a *Aggregator) partitionFingerprint(members []*domain.Build) string {
	sorted := make([]*domain.Build, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := blake3.New()
	_, _ = h.Write([]byte(a.salt))
	_, _ = h.Write([]byte{0})
	for _, b := range sorted {
		_, _ = h.Write([]byte(b.ID))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(strconv.AppendInt(nil, b.ModifiedAt.UnixNano(), 10))
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AggregateTree merges partial indexes with a balanced pairwise tree.
// By associativity the result equals any other merge order.
func AggregateTree(parts []*domain.FacetIndex) *domain.FacetIndex {
	switch len(parts) {
	case 0:
		return &domain.FacetIndex{}
	case 1:
		return domain.Combine(parts[0], nil)
	}
	mid := len(parts) / 2
	return domain.Combine(AggregateTree(parts[:mid]), AggregateTree(parts[mid:]))
}

// Fingerprint digests the canonical sorted form of an index.
// Equal indexes have equal fingerprints.
func Fingerprint(idx *domain.FacetIndex) string {
	h := blake3.New()
	for _, c := range domain.Categories() {
		_, _ = h.Write([]byte(c))
		_, _ = h.Write([]byte{0})
		for _, v := range idx.Values(c) {
			_, _ = h.Write([]byte(v))
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// PartitionKey returns the directory part of a build ID
// (the ID without its filename). IDs without a separator share the
// empty key.
func PartitionKey(id string) string {
	i := strings.LastIndex(id, "/")
	if i < 0 {
		return ""
	}
	return id[:i]
}
