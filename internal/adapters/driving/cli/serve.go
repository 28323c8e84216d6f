package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/buildboard/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Starts the HTTP API. When ingest.dir is set the directory is scanned
first and, with ingest.watch, watched for new records. Background tasks
(rescans, facet rebuilds) run while the scheduler is enabled.

Stop with Ctrl-C; in-flight requests are allowed to finish.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if a.Config == nil {
		return errors.New("settings not loaded")
	}
	ctx := cmd.Context()

	logger.Section("Aggregation")
	if err := a.Ingest.Reaggregate(ctx); err != nil {
		return fmt.Errorf("initial aggregation: %w", err)
	}

	addr := a.Config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := httpapi.NewServer(httpapi.Config{
		Addr:         addr,
		DefaultLimit: a.Config.Query.DefaultLimit,
	}, httpapi.Services{
		Query:       a.Query,
		Manifests:   a.Manifests,
		Comparisons: a.Comparisons,
		Messages:    a.Messages,
	}, a.Metrics)

	g, gctx := errgroup.WithContext(ctx)

	if dir := a.Config.Ingest.Dir; dir != "" && a.OpenSource != nil {
		src, err := a.OpenSource(dir)
		if err != nil {
			return fmt.Errorf("open %s: %w", dir, err)
		}
		defer src.Close()
		watch := a.Config.Ingest.Watch
		g.Go(func() error {
			ingestAndWatch(gctx, a, src, watch)
			return nil
		})
	}

	if a.Scheduler != nil {
		defer a.Scheduler.Stop() //nolint:errcheck
		g.Go(func() error {
			return ignoreCanceled(a.Scheduler.Start(gctx))
		})
	}

	g.Go(func() error {
		return server.Run(gctx)
	})

	cmd.Printf("Serving on %s\n", addr)
	return g.Wait()
}

// ingestAndWatch scans src, then keeps ingesting new records until ctx
// is done. Failures are logged; the server keeps running without them.
func ingestAndWatch(ctx context.Context, a *App, src driven.RecordSource, watch bool) {
	if err := ignoreCanceled(a.Ingest.Ingest(ctx, src)); err != nil {
		logger.Warn("Initial scan of %s failed: %v", src.Name(), err)
	}
	if !watch {
		return
	}
	if err := ignoreCanceled(a.Ingest.Watch(ctx, src)); err != nil {
		logger.Warn("Watching %s failed: %v", src.Name(), err)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
