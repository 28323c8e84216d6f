// Package cli provides the buildboard command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
	"github.com/custodia-labs/buildboard/internal/logger"
	"github.com/custodia-labs/buildboard/internal/observability"
)

// HomeEnv overrides the default application directory.
const HomeEnv = "BUILDBOARD_HOME"

// App holds the services commands run against.
type App struct {
	// Home is the application directory holding config.toml.
	Home string

	// Config is the effective configuration at startup.
	Config *domain.AppSettings

	Settings    driving.SettingsService
	Query       driving.QueryService
	Manifests   driving.ManifestService
	Comparisons driving.ComparisonService
	Ingest      driving.IngestOrchestrator
	Messages    driving.MessageFeed
	Scheduler   driving.Scheduler
	Metrics     *observability.Metrics

	// OpenSource opens a record source over a directory.
	OpenSource func(dir string) (driven.RecordSource, error)

	// Close releases stores and caches. May be nil.
	Close func() error
}

// BootstrapFunc builds the application for a home directory.
type BootstrapFunc func(home string) (*App, error)

var (
	version   = "dev"
	verbose   bool
	configDir string

	bootstrap BootstrapFunc
	appMu     sync.Mutex
	app       *App
)

var rootCmd = &cobra.Command{
	Use:   "buildboard",
	Short: "Browse, filter and compare build artifacts",
	Long: `buildboard catalogues build artifact metadata records, derives
facets (OS, version, architecture, license, toy variant) from them and
serves filtered listings and manifest comparisons over HTTP, MCP and
this command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "",
		"configuration directory (default $"+HomeEnv+" or ~/.buildboard)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets how commands obtain their services.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// Execute runs the command line with args taken from os.Args.
func Execute(ctx context.Context) error {
	defer closeApp()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// ResolveHome returns the application directory: flag, then the
// environment, then ~/.buildboard.
func ResolveHome(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".buildboard"), nil
}

// loadApp bootstraps the application once per process.
func loadApp() (*App, error) {
	appMu.Lock()
	defer appMu.Unlock()

	if app != nil {
		return app, nil
	}
	if bootstrap == nil {
		return nil, errors.New("application not configured")
	}
	home, err := ResolveHome(configDir)
	if err != nil {
		return nil, err
	}
	a, err := bootstrap(home)
	if err != nil {
		return nil, err
	}
	app = a
	return app, nil
}

func closeApp() {
	appMu.Lock()
	defer appMu.Unlock()

	if app == nil {
		return
	}
	if app.Close != nil {
		if err := app.Close(); err != nil {
			logger.Error("closing: %v", err)
		}
	}
	app = nil
}
