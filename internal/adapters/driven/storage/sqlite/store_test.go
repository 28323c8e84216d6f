package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/buildboard/internal/core/domain"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func testRecord(id string, modified time.Time) *domain.RawRecord {
	return &domain.RawRecord{
		ID:       id,
		Type:     domain.RecordTypeJSON,
		Modified: modified,
		Length:   2048,
		UserData: map[string]any{
			"product":  "couchbase-server",
			"arch":     "x86_64",
			"manifest": map[string]any{"ns_server": "abc"},
		},
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "corpus.db"), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.CorpusStore().SaveRecord(ctx, testRecord("p/v/a.rpm", time.Now())))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.CorpusStore().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rev, err := reopened.CorpusStore().Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev)
}

func TestCorpusStore_SaveAndGet(t *testing.T) {
	corpus := setupTestStore(t).CorpusStore()
	ctx := context.Background()
	modified := time.Date(2012, 12, 11, 10, 9, 8, 123456789, time.UTC)

	require.NoError(t, corpus.SaveRecord(ctx, testRecord("couchbase-server/2.0.0/a.rpm", modified)))

	got, err := corpus.GetRecord(ctx, "couchbase-server/2.0.0/a.rpm")
	require.NoError(t, err)
	assert.Equal(t, domain.RecordTypeJSON, got.Type)
	assert.Equal(t, int64(2048), got.Length)
	assert.True(t, got.Modified.Equal(modified))
	assert.Equal(t, "x86_64", got.String("arch"))
	assert.Equal(t, map[string]any{"ns_server": "abc"}, got.UserData["manifest"])
}

func TestCorpusStore_GetNotFound(t *testing.T) {
	corpus := setupTestStore(t).CorpusStore()

	_, err := corpus.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorpusStore_SaveInvalid(t *testing.T) {
	corpus := setupTestStore(t).CorpusStore()

	assert.ErrorIs(t, corpus.SaveRecord(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, corpus.SaveRecord(context.Background(), &domain.RawRecord{}), domain.ErrInvalidInput)
}

func TestCorpusStore_Upsert(t *testing.T) {
	corpus := setupTestStore(t).CorpusStore()
	ctx := context.Background()

	rec := testRecord("p/v/a.rpm", time.Now())
	require.NoError(t, corpus.SaveRecord(ctx, rec))
	rec.Length = 99
	rec.UserData = nil
	require.NoError(t, corpus.SaveRecord(ctx, rec))

	got, err := corpus.GetRecord(ctx, "p/v/a.rpm")
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.Length)
	assert.Nil(t, got.UserData)

	n, err := corpus.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rev, err := corpus.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev)
}

func TestCorpusStore_FindByFilename(t *testing.T) {
	corpus := setupTestStore(t).CorpusStore()
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"p/2.0.1/a.rpm", "p/2.0.0/a.rpm", "p/2.0.0/b.rpm", "a.rpm"} {
		require.NoError(t, corpus.SaveRecord(ctx, testRecord(id, now)))
	}

	got, err := corpus.FindByFilename(ctx, "a.rpm")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p/2.0.0/a.rpm", got[0].ID)
	assert.Equal(t, "p/2.0.1/a.rpm", got[1].ID)

	none, err := corpus.FindByFilename(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCorpusStore_ListRecords(t *testing.T) {
	corpus := setupTestStore(t).CorpusStore()
	ctx := context.Background()

	empty, err := corpus.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, id := range []string{"c/x", "a/x", "b/x"} {
		require.NoError(t, corpus.SaveRecord(ctx, testRecord(id, time.Now())))
	}

	recs, err := corpus.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "a/x", recs[0].ID)
	assert.Equal(t, "c/x", recs[2].ID)
}

func TestCorpusStore_ConcurrentSaves(t *testing.T) {
	corpus := setupTestStore(t).CorpusStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := filepath.Join("p", "v", string(rune('a'+n))+".rpm")
			assert.NoError(t, corpus.SaveRecord(ctx, testRecord(id, time.Now())))
		}(i)
	}
	wg.Wait()

	rev, err := corpus.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), rev)
}

func TestFilenameOf(t *testing.T) {
	assert.Equal(t, "a.rpm", filenameOf("p/v/a.rpm"))
	assert.Equal(t, "", filenameOf("a.rpm"))
	assert.Equal(t, "", filenameOf("p/"))
}

func TestFormatTimeSortsLexically(t *testing.T) {
	a := time.Date(2013, 1, 1, 0, 0, 5, 0, time.UTC)
	b := a.Add(500 * time.Millisecond)
	assert.Less(t, formatTime(a), formatTime(b))
	assert.True(t, parseTime(formatTime(b)).Equal(b))
}
