package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/logger"
)

// DefaultAccessorTimeout bounds a single corpus accessor call.
const DefaultAccessorTimeout = 5 * time.Second

// BuildCorpus reads builds from the corpus store.
// Every store call is bounded by the accessor timeout; failures and
// expiry surface as domain.ErrAccessorUnavailable. Rejected records are
// invisible to callers.
type BuildCorpus struct {
	store      driven.CorpusStore
	normaliser driven.Normaliser
	timeout    time.Duration
}

// NewBuildCorpus creates a corpus accessor.
// A non-positive timeout selects DefaultAccessorTimeout.
func NewBuildCorpus(store driven.CorpusStore, normaliser driven.Normaliser, timeout time.Duration) *BuildCorpus {
	if timeout <= 0 {
		timeout = DefaultAccessorTimeout
	}
	return &BuildCorpus{
		store:      store,
		normaliser: normaliser,
		timeout:    timeout,
	}
}

// corpusSnapshot is the normalised corpus at one revision,
// in listing order.
type corpusSnapshot struct {
	revision uint64
	builds   []domain.Build
}

// Revision returns the current corpus revision.
func (c *BuildCorpus) Revision(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rev, err := c.store.Revision(ctx)
	if err != nil {
		return 0, accessorError("read revision", err)
	}
	return rev, nil
}

// snapshot loads and normalises the whole corpus.
// Builds are sorted most recently modified first, ties by ID.
func (c *BuildCorpus) snapshot(ctx context.Context) (*corpusSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rev, err := c.store.Revision(ctx)
	if err != nil {
		return nil, accessorError("read revision", err)
	}
	records, err := c.store.ListRecords(ctx)
	if err != nil {
		return nil, accessorError("list records", err)
	}

	builds := make([]domain.Build, 0, len(records))
	for i := range records {
		b, err := c.normaliser.Normalise(ctx, &records[i])
		if err != nil {
			if !errors.Is(err, domain.ErrRejected) {
				logger.Warn("Normalise %s: %v", records[i].ID, err)
			}
			continue
		}
		builds = append(builds, *b)
	}
	sort.Slice(builds, func(i, j int) bool { return builds[i].Before(&builds[j]) })

	return &corpusSnapshot{revision: rev, builds: builds}, nil
}

// Save persists a record.
func (c *BuildCorpus) Save(ctx context.Context, rec *domain.RawRecord) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.store.SaveRecord(ctx, rec); err != nil {
		return accessorError("save record", err)
	}
	return nil
}

// Normalise derives the build of a record.
func (c *BuildCorpus) Normalise(ctx context.Context, rec *domain.RawRecord) (*domain.Build, error) {
	return c.normaliser.Normalise(ctx, rec)
}

// Resolve finds the record for a build reference: an exact ID first,
// then a filename. Returns domain.ErrNotFound if neither matches.
// A filename shared by several records resolves to the most recently
// modified one.
func (c *BuildCorpus) Resolve(ctx context.Context, ref string) (*domain.RawRecord, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: empty build reference", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rec, err := c.store.GetRecord(ctx, ref)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, accessorError("get record", err)
	}

	matches, err := c.store.FindByFilename(ctx, ref)
	if err != nil {
		return nil, accessorError("find by filename", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("build %q: %w", ref, domain.ErrNotFound)
	}

	best := &matches[0]
	for i := 1; i < len(matches); i++ {
		if matches[i].Modified.After(best.Modified) {
			best = &matches[i]
		}
	}
	return best, nil
}

// accessorError maps a store failure to domain.ErrAccessorUnavailable.
// Not-found and invalid-input errors pass through unchanged.
func accessorError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrAccessorUnavailable, err)
}
