package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/buildboard/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/normalisers/build"
)

const testProduct = "couchbase-server"

var baseTime = time.Date(2012, 11, 1, 0, 0, 0, 0, time.UTC)

// rawBuild creates a record for a couchbase-server artifact.
func rawBuild(id string, age time.Duration, userdata map[string]any) domain.RawRecord {
	ud := map[string]any{"product": testProduct}
	for k, v := range userdata {
		ud[k] = v
	}
	return domain.RawRecord{
		ID:       id,
		Type:     domain.RecordTypeJSON,
		Modified: baseTime.Add(-age),
		Length:   1000,
		UserData: ud,
	}
}

// sampleRecords is a small corpus: four listable builds, one problem
// build and one record of another product.
func sampleRecords() []domain.RawRecord {
	return []domain.RawRecord{
		rawBuild("couchbase-server/2.0.0/couchbase-server-enterprise_x86_64_2.0.0-1976-rel.rpm", 1*time.Hour,
			map[string]any{"arch": "x86_64", "license": "enterprise", "manifest": map[string]any{"ns_server": "a1", "ep-engine": "b1"}}),
		rawBuild("couchbase-server/2.0.0/couchbase-server-community_x86_2.0.0-1976-rel.deb", 2*time.Hour,
			map[string]any{"arch": "x86", "license": "community"}),
		rawBuild("couchbase-server/2.0.1/couchbase-server-enterprise_x86_64_2.0.1-120-rel.exe", 3*time.Hour,
			map[string]any{"arch": "x86_64", "license": "enterprise", "manifest": map[string]any{"ns_server": "a2", "couchdb": "c1"}}),
		rawBuild("couchbase-server/toy/couchbase-server-enterprise_toy-views-x86_64_2.0.2-8-rel.zip", 4*time.Hour,
			map[string]any{"arch": "x86_64", "license": "enterprise"}),
		rawBuild("couchbase-server/misc/couchbase-server_readme.txt", 5*time.Hour, nil),
		{
			ID:       "other/1.0/other-product-1.0-1-rel.rpm",
			Type:     domain.RecordTypeJSON,
			Modified: baseTime,
			UserData: map[string]any{"product": "other-product"},
		},
	}
}

// testCorpus returns a corpus over a memory store seeded with recs.
func testCorpus(t *testing.T, recs ...domain.RawRecord) (*BuildCorpus, *memory.CorpusStore) {
	t.Helper()
	store := memory.NewCorpusStore()
	for i := range recs {
		if err := store.SaveRecord(context.Background(), &recs[i]); err != nil {
			t.Fatalf("seed %s: %v", recs[i].ID, err)
		}
	}
	return NewBuildCorpus(store, build.New(testProduct), time.Second), store
}

// --- Mock implementations ---

// sliceSource implements driven.RecordSource over fixed records.
type sliceSource struct {
	records []domain.RawRecord
	errs    []error
	scans   int
	mu      sync.Mutex
	block   chan struct{}
}

var _ driven.RecordSource = (*sliceSource)(nil)

func (s *sliceSource) Name() string { return "slice" }

func (s *sliceSource) Scan(ctx context.Context) (<-chan domain.RawRecord, <-chan error) {
	s.mu.Lock()
	s.scans++
	s.mu.Unlock()

	recs := make(chan domain.RawRecord)
	errs := make(chan error)
	go func() {
		defer close(recs)
		defer close(errs)
		if s.block != nil {
			select {
			case <-s.block:
			case <-ctx.Done():
				return
			}
		}
		for _, err := range s.errs {
			select {
			case errs <- err:
			case <-ctx.Done():
				return
			}
		}
		for _, r := range s.records {
			select {
			case recs <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return recs, errs
}

func (s *sliceSource) Watch(ctx context.Context) (<-chan domain.RawRecord, <-chan error, error) {
	recs, errs := s.Scan(ctx)
	return recs, errs, nil
}

func (s *sliceSource) Close() error { return nil }

func (s *sliceSource) scanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

// mockPartitionCache implements driven.PartitionCache in memory.
type mockPartitionCache struct {
	mu    sync.Mutex
	parts map[string]domain.Partition
	puts  int
	err   error
}

var _ driven.PartitionCache = (*mockPartitionCache)(nil)

func newMockPartitionCache() *mockPartitionCache {
	return &mockPartitionCache{parts: make(map[string]domain.Partition)}
}

func (m *mockPartitionCache) Get(_ context.Context, key string) (*domain.Partition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.parts[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *mockPartitionCache) Put(_ context.Context, part *domain.Partition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.parts[part.Key] = *part
	m.puts++
	return nil
}

func (m *mockPartitionCache) Close() error { return nil }

// failingStore implements driven.CorpusStore and fails every call.
type failingStore struct {
	err error
}

var _ driven.CorpusStore = (*failingStore)(nil)

var errStoreDown = errors.New("store down")

func (f *failingStore) SaveRecord(context.Context, *domain.RawRecord) error { return f.err }
func (f *failingStore) GetRecord(context.Context, string) (*domain.RawRecord, error) {
	return nil, f.err
}
func (f *failingStore) FindByFilename(context.Context, string) ([]domain.RawRecord, error) {
	return nil, f.err
}
func (f *failingStore) ListRecords(context.Context) ([]domain.RawRecord, error) { return nil, f.err }
func (f *failingStore) Revision(context.Context) (uint64, error)                 { return 0, f.err }
func (f *failingStore) Count(context.Context) (int, error)                       { return 0, f.err }
func (f *failingStore) Close() error                                             { return nil }

// slowStore blocks every call until its context expires.
type slowStore struct {
	failingStore
}

func (s *slowStore) Revision(ctx context.Context) (uint64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (s *slowStore) GetRecord(ctx context.Context, _ string) (*domain.RawRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
