package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
)

// Ensure CorpusStore implements the interface.
var _ driven.CorpusStore = (*CorpusStore)(nil)

// CorpusStore is an in-memory implementation of driven.CorpusStore.
type CorpusStore struct {
	mu       sync.RWMutex
	records  map[string]domain.RawRecord
	revision uint64
}

// NewCorpusStore creates a new in-memory corpus store.
func NewCorpusStore() *CorpusStore {
	return &CorpusStore{
		records: make(map[string]domain.RawRecord),
	}
}

// SaveRecord stores or replaces a record.
func (s *CorpusStore) SaveRecord(ctx context.Context, rec *domain.RawRecord) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = cloneRecord(*rec)
	s.revision++
	return nil
}

// GetRecord retrieves a record by ID.
func (s *CorpusStore) GetRecord(ctx context.Context, id string) (*domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

// FindByFilename returns records whose ID ends in "/"+filename.
func (s *CorpusStore) FindByFilename(ctx context.Context, filename string) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	suffix := "/" + filename
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RawRecord
	for id, rec := range s.records {
		if strings.HasSuffix(id, suffix) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListRecords returns every record, ordered by ID.
func (s *CorpusStore) ListRecords(ctx context.Context) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RawRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Revision returns the number of successful saves.
func (s *CorpusStore) Revision(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision, nil
}

// Count returns the number of stored records.
func (s *CorpusStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op.
func (s *CorpusStore) Close() error {
	return nil
}

// cloneRecord copies the top level of the user-data map so callers
// cannot mutate stored records.
func cloneRecord(rec domain.RawRecord) domain.RawRecord {
	if rec.UserData != nil {
		ud := make(map[string]any, len(rec.UserData))
		for k, v := range rec.UserData {
			ud[k] = v
		}
		rec.UserData = ud
	}
	return rec
}
