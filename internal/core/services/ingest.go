package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
	"github.com/custodia-labs/buildboard/internal/logger"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.IngestOrchestrator = (*IngestOrchestrator)(nil)

// Ingest outcomes reported to IngestMetrics.
const (
	OutcomeIngested = "ingested"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// IngestMetrics receives ingestion and aggregation measurements.
type IngestMetrics interface {
	// RecordIngest counts one processed record by outcome.
	RecordIngest(outcome string)

	// RecordRebuild observes one full facet rebuild.
	RecordRebuild(partitions, reused int, duration time.Duration)
}

// IngestOrchestrator moves raw records from sources into the corpus and
// keeps the aggregator in step with it.
type IngestOrchestrator struct {
	corpus     *BuildCorpus
	aggregator *Aggregator
	feed       driving.MessageFeed
	limiter    *rate.Limiter
	metrics    IngestMetrics

	running atomic.Bool

	mu     sync.RWMutex
	status driving.IngestStatus
}

// NewIngestOrchestrator creates an ingest orchestrator.
// feed may be nil. ratePerSecond bounds records processed per second;
// zero or less is unlimited.
func NewIngestOrchestrator(
	corpus *BuildCorpus,
	aggregator *Aggregator,
	feed driving.MessageFeed,
	ratePerSecond float64,
) *IngestOrchestrator {
	o := &IngestOrchestrator{
		corpus:     corpus,
		aggregator: aggregator,
		feed:       feed,
	}
	if ratePerSecond > 0 {
		burst := max(int(ratePerSecond), 1)
		o.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return o
}

// WithMetrics attaches a metrics sink.
func (o *IngestOrchestrator) WithMetrics(m IngestMetrics) *IngestOrchestrator {
	o.metrics = m
	return o
}

// Ingest performs a full scan of source.
func (o *IngestOrchestrator) Ingest(ctx context.Context, source driven.RecordSource) error {
	if !o.running.CompareAndSwap(false, true) {
		return domain.ErrIngestInProgress
	}
	defer o.running.Store(false)

	logger.Info("Starting scan of %s", source.Name())
	o.post(domain.MessageInfo, fmt.Sprintf("Scanning %s", source.Name()))

	before := o.Status()
	recs, errs := source.Scan(ctx)
	if err := o.drain(ctx, recs, errs); err != nil {
		o.post(domain.MessageError, fmt.Sprintf("Scan of %s aborted: %v", source.Name(), err))
		return err
	}

	o.mu.Lock()
	o.status.LastScan = time.Now()
	after := o.status
	o.mu.Unlock()

	ingested := after.RecordsIngested - before.RecordsIngested
	rejected := after.RecordsRejected - before.RecordsRejected
	failed := after.ErrorCount - before.ErrorCount
	logger.Info("Scan complete: %d ingested, %d rejected, %d errors", ingested, rejected, failed)
	level := domain.MessageInfo
	if failed > 0 {
		level = domain.MessageWarn
	}
	o.post(level, fmt.Sprintf("Scanned %s: %d ingested, %d rejected, %d errors",
		source.Name(), ingested, rejected, failed))
	return nil
}

// Watch ingests records from source as they appear, until ctx is done.
func (o *IngestOrchestrator) Watch(ctx context.Context, source driven.RecordSource) error {
	recs, errs, err := source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", source.Name(), err)
	}
	logger.Info("Watching %s", source.Name())
	o.post(domain.MessageInfo, fmt.Sprintf("Watching %s for new records", source.Name()))
	return o.drain(ctx, recs, errs)
}

// Reaggregate rebuilds the facet index from the whole corpus.
func (o *IngestOrchestrator) Reaggregate(ctx context.Context) error {
	snap, err := o.corpus.snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	stats, err := o.aggregator.Rebuild(ctx, snap.builds)
	if err != nil {
		return err
	}
	if o.metrics != nil {
		o.metrics.RecordRebuild(stats.Partitions, stats.Reused, stats.Duration)
	}
	o.post(domain.MessageInfo, fmt.Sprintf("Rebuilt facets over %d builds (%d of %d partitions cached)",
		stats.Builds, stats.Reused, stats.Partitions))
	return nil
}

// Status returns a copy of the ingestion counters.
func (o *IngestOrchestrator) Status() driving.IngestStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.status
	s.Running = o.running.Load()
	return s
}

// drain consumes a record stream until both channels close.
// Errors on errs concern single records and are counted, not returned.
// A stream cut short by ctx reports the context error.
func (o *IngestOrchestrator) drain(ctx context.Context, recs <-chan domain.RawRecord, errs <-chan error) error {
	for recs != nil || errs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			o.count(OutcomeFailed)
			logger.Warn("Source error: %v", err)

		case rec, ok := <-recs:
			if !ok {
				recs = nil
				continue
			}
			if err := o.processOne(ctx, &rec); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				o.count(OutcomeFailed)
				logger.Warn("Failed to ingest %s: %v", rec.ID, err)
			}
		}
	}
	return ctx.Err()
}

// processOne normalises, stores and aggregates a single record.
// Rejected records are counted and skipped.
func (o *IngestOrchestrator) processOne(ctx context.Context, rec *domain.RawRecord) error {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	build, err := o.corpus.Normalise(ctx, rec)
	if err != nil {
		if errors.Is(err, domain.ErrRejected) {
			o.count(OutcomeRejected)
			logger.Debug("Skipping %s: %v", rec.ID, err)
			return nil
		}
		return fmt.Errorf("normalise: %w", err)
	}

	if err := o.corpus.Save(ctx, rec); err != nil {
		return err
	}
	o.aggregator.Add(build)
	o.count(OutcomeIngested)
	logger.Debug("Ingested %s", rec.ID)
	return nil
}

func (o *IngestOrchestrator) count(outcome string) {
	o.mu.Lock()
	switch outcome {
	case OutcomeIngested:
		o.status.RecordsIngested++
	case OutcomeRejected:
		o.status.RecordsRejected++
	case OutcomeFailed:
		o.status.ErrorCount++
	}
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.RecordIngest(outcome)
	}
}

func (o *IngestOrchestrator) post(level domain.MessageLevel, text string) {
	if o.feed != nil {
		o.feed.Post(level, text)
	}
}
