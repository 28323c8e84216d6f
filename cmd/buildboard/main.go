// Command buildboard catalogues build artifacts and serves filtered
// listings, facets and manifest comparisons.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/buildboard/internal/adapters/driven/config/file"
	"github.com/custodia-labs/buildboard/internal/adapters/driven/source/filesystem"
	"github.com/custodia-labs/buildboard/internal/adapters/driven/storage/badger"
	"github.com/custodia-labs/buildboard/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/buildboard/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/buildboard/internal/adapters/driving/cli"
	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/core/services"
	"github.com/custodia-labs/buildboard/internal/normalisers/build"
	"github.com/custodia-labs/buildboard/internal/observability"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// bootstrap wires stores, caches and services for home.
func bootstrap(home string) (*cli.App, error) {
	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsSvc := services.NewSettingsService(configStore, home)
	if err := settingsSvc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", configStore.Path(), err)
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	var (
		corpusStore driven.CorpusStore
		schedStore  driven.SchedulerStore
	)
	switch settings.Storage.Backend {
	case domain.StorageBackendSQLite:
		db, err := sqlite.NewStore(settings.Storage.Dir)
		if err != nil {
			return nil, err
		}
		closers = append(closers, db.Close)
		corpusStore = db.CorpusStore()
		schedStore = db.SchedulerStore()
	default:
		corpusStore = memory.NewCorpusStore()
		schedStore = memory.NewSchedulerStore()
	}

	var cache driven.PartitionCache
	if settings.Cache.Enabled {
		pc, err := badger.Open(badger.DefaultConfig(settings.Cache.Dir))
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		closers = append(closers, pc.Close)
		cache = pc
	}

	metrics := observability.NewMetrics()
	product := settings.Catalog.Product

	corpus := services.NewBuildCorpus(corpusStore, build.New(product), settings.Corpus.Timeout)
	aggregator := services.NewAggregator(cache, product)
	feed := services.NewMessageFeed(settings.Messages.Capacity)
	ingest := services.NewIngestOrchestrator(corpus, aggregator, feed, settings.Ingest.Rate).
		WithMetrics(metrics)
	manifests := services.NewManifestService(corpus)

	var rescanSource driven.RecordSource
	if settings.Ingest.Dir != "" {
		src := filesystem.New(settings.Ingest.Dir)
		closers = append(closers, src.Close)
		rescanSource = src
	}

	return &cli.App{
		Home:        home,
		Config:      settings,
		Settings:    settingsSvc,
		Query:       services.NewQueryService(corpus, aggregator, settings.Query.MaxLimit),
		Manifests:   manifests,
		Comparisons: services.NewComparisonService(manifests),
		Ingest:      ingest,
		Messages:    feed,
		Scheduler:   services.NewScheduler(settings.Scheduler, schedStore, ingest, rescanSource),
		Metrics:     metrics,
		OpenSource: func(dir string) (driven.RecordSource, error) {
			return filesystem.New(dir), nil
		},
		Close: closeAll,
	}, nil
}
