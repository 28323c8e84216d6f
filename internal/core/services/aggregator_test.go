package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

func syntheticBuilds(n int) []domain.Build {
	oses := []string{"Windows", "Mac OS X", "CentOS 5", "Ubuntu 12.04"}
	arches := []string{"x86", "x86_64"}
	out := make([]domain.Build, n)
	for i := range out {
		out[i] = domain.Build{
			ID:           fmt.Sprintf("p/%d/b-%d.rpm", i%7, i),
			OS:           oses[i%len(oses)],
			Architecture: arches[i%len(arches)],
			License:      "enterprise",
			FullVersion:  fmt.Sprintf("2.%d.0-%d", i%5, i),
			Version:      fmt.Sprintf("2.%d.0", i%5),
			ModifiedAt:   baseTime.Add(time.Duration(i) * time.Minute),
		}
		if i%11 == 0 {
			out[i].ToyVariant = fmt.Sprintf("toy%d", i%3)
		}
	}
	return out
}

func sequentialIndex(builds []domain.Build) *domain.FacetIndex {
	var idx *domain.FacetIndex
	for i := range builds {
		idx = domain.Combine(idx, domain.Singleton(&builds[i]))
	}
	return idx
}

func TestAggregator_StartsEmpty(t *testing.T) {
	a := NewAggregator(nil, testProduct)
	snap := a.Snapshot()
	require.NotNil(t, snap)
	for _, c := range domain.Categories() {
		assert.Zero(t, snap.Len(c))
	}
}

func TestAggregator_AddConcurrent(t *testing.T) {
	a := NewAggregator(nil, testProduct)
	builds := syntheticBuilds(200)

	var wg sync.WaitGroup
	for i := range builds {
		wg.Add(1)
		go func(b *domain.Build) {
			defer wg.Done()
			a.Add(b)
		}(&builds[i])
	}
	wg.Wait()

	assert.True(t, a.Snapshot().Equal(sequentialIndex(builds)))
}

func TestAggregator_AddIsIdempotent(t *testing.T) {
	a := NewAggregator(nil, testProduct)
	b := syntheticBuilds(1)[0]

	a.Add(&b)
	first := a.Snapshot()
	a.Add(&b)

	assert.True(t, first.Equal(a.Snapshot()))
}

func TestAggregator_ProblemBuildHasNoVersion(t *testing.T) {
	a := NewAggregator(nil, testProduct)
	a.Add(&domain.Build{ID: "p/v/readme.txt", OS: "", Architecture: "x86", Extension: "txt"})

	snap := a.Snapshot()
	assert.Zero(t, snap.Len(domain.CategoryVersion))
	assert.True(t, snap.Has(domain.CategoryArchitecture, "x86"))
}

func TestAggregator_RebuildMatchesSequential(t *testing.T) {
	builds := syntheticBuilds(300)
	a := NewAggregator(nil, testProduct)

	stats, err := a.Rebuild(context.Background(), builds)
	require.NoError(t, err)

	assert.Equal(t, 300, stats.Builds)
	assert.Equal(t, 7, stats.Partitions)
	assert.Zero(t, stats.Reused)
	assert.True(t, a.Snapshot().Equal(sequentialIndex(builds)))
}

func TestAggregator_RebuildKeepsConcurrentAdds(t *testing.T) {
	a := NewAggregator(nil, testProduct)
	extra := domain.Build{ID: "q/v/x.exe", OS: "Solaris", FullVersion: "9.9-1", Version: "9.9"}
	a.Add(&extra)

	_, err := a.Rebuild(context.Background(), syntheticBuilds(10))
	require.NoError(t, err)

	assert.True(t, a.Snapshot().Has(domain.CategoryOS, "Solaris"))
}

func TestAggregator_RebuildReusesCachedPartitions(t *testing.T) {
	ctx := context.Background()
	cache := newMockPartitionCache()
	builds := syntheticBuilds(100)

	cold := NewAggregator(cache, testProduct)
	stats, err := cold.Rebuild(ctx, builds)
	require.NoError(t, err)
	assert.Zero(t, stats.Reused)
	assert.Equal(t, stats.Partitions, cache.puts)

	warm := NewAggregator(cache, testProduct)
	stats, err = warm.Rebuild(ctx, builds)
	require.NoError(t, err)
	assert.Equal(t, stats.Partitions, stats.Reused)
	assert.True(t, cold.Snapshot().Equal(warm.Snapshot()))
}

func TestAggregator_ChangedPartitionIsRecomputed(t *testing.T) {
	ctx := context.Background()
	cache := newMockPartitionCache()
	builds := syntheticBuilds(70)

	_, err := NewAggregator(cache, testProduct).Rebuild(ctx, builds)
	require.NoError(t, err)

	builds[0].ModifiedAt = builds[0].ModifiedAt.Add(time.Hour)
	builds[0].OS = "FreeBSD"

	a := NewAggregator(cache, testProduct)
	stats, err := a.Rebuild(ctx, builds)
	require.NoError(t, err)
	assert.Equal(t, stats.Partitions-1, stats.Reused)
	assert.True(t, a.Snapshot().Has(domain.CategoryOS, "FreeBSD"))
}

func TestAggregator_SaltInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	cache := newMockPartitionCache()
	builds := syntheticBuilds(20)

	_, err := NewAggregator(cache, "one").Rebuild(ctx, builds)
	require.NoError(t, err)

	stats, err := NewAggregator(cache, "two").Rebuild(ctx, builds)
	require.NoError(t, err)
	assert.Zero(t, stats.Reused)
}

func TestAggregator_CacheFailureFallsBack(t *testing.T) {
	cache := newMockPartitionCache()
	cache.err = errStoreDown
	builds := syntheticBuilds(30)

	a := NewAggregator(cache, testProduct)
	stats, err := a.Rebuild(context.Background(), builds)
	require.NoError(t, err)
	assert.Zero(t, stats.Reused)
	assert.True(t, a.Snapshot().Equal(sequentialIndex(builds)))
}

func TestAggregator_RebuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(nil, testProduct).Rebuild(ctx, syntheticBuilds(50))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregateTree_OrderIndependent(t *testing.T) {
	builds := syntheticBuilds(64)
	parts := make([]*domain.FacetIndex, len(builds))
	for i := range builds {
		parts[i] = domain.Singleton(&builds[i])
	}
	want := AggregateTree(parts)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]*domain.FacetIndex, len(parts))
		copy(shuffled, parts)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.True(t, want.Equal(AggregateTree(shuffled)))
	}
	assert.True(t, want.Equal(sequentialIndex(builds)))
}

func TestAggregateTree_Empty(t *testing.T) {
	idx := AggregateTree(nil)
	require.NotNil(t, idx)
	assert.Zero(t, idx.Len(domain.CategoryOS))
}

func TestFingerprint(t *testing.T) {
	builds := syntheticBuilds(20)
	a := sequentialIndex(builds)
	b := AggregateTree([]*domain.FacetIndex{sequentialIndex(builds[10:]), sequentialIndex(builds[:10])})

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 32)

	c := domain.Combine(a, domain.NewFacetIndex(map[domain.Category][]string{domain.CategoryLicense: {"community"}}))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}

func TestPartitionKey(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"couchbase-server/2.0.0/a.rpm", "couchbase-server/2.0.0"},
		{"a.rpm", ""},
		{"dir/", "dir"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, PartitionKey(tt.id))
		})
	}
}
