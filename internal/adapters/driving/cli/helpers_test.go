package cli

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/buildboard/internal/adapters/driven/source/filesystem"
	"github.com/custodia-labs/buildboard/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/core/services"
	"github.com/custodia-labs/buildboard/internal/normalisers/build"
)

const (
	testProduct  = "couchbase-server"
	rpmFilename  = "couchbase-server-enterprise_x86_64_2.0.0-1976-rel.rpm"
	exeFilename  = "couchbase-server-enterprise_x86_64_2.0.1-120-rel.exe"
	problemBuild = "couchbase-server/misc/couchbase-server_readme.txt"
)

var baseTime = time.Date(2012, 11, 1, 0, 0, 0, 0, time.UTC)

func testRecords() []domain.RawRecord {
	return []domain.RawRecord{
		{
			ID:       "couchbase-server/2.0.0/" + rpmFilename,
			Type:     domain.RecordTypeJSON,
			Modified: baseTime.Add(-1 * time.Hour),
			Length:   2048,
			UserData: map[string]any{
				"product": testProduct, "arch": "x86_64", "license": "enterprise",
				"manifest": map[string]any{"ns_server": "a1"},
			},
		},
		{
			ID:       "couchbase-server/2.0.1/" + exeFilename,
			Type:     domain.RecordTypeJSON,
			Modified: baseTime.Add(-2 * time.Hour),
			Length:   4096,
			UserData: map[string]any{
				"product": testProduct, "arch": "x86_64", "license": "enterprise",
				"manifest": map[string]any{"ns_server": "a2", "couchdb": "c1"},
			},
		},
		{
			ID:       problemBuild,
			Type:     domain.RecordTypeJSON,
			Modified: baseTime.Add(-3 * time.Hour),
			UserData: map[string]any{"product": testProduct},
		},
	}
}

// newTestApp wires real services over memory stores seeded with
// testRecords.
func newTestApp(t *testing.T) *App {
	t.Helper()

	store := memory.NewCorpusStore()
	recs := testRecords()
	for i := range recs {
		require.NoError(t, store.SaveRecord(context.Background(), &recs[i]))
	}

	corpus := services.NewBuildCorpus(store, build.New(testProduct), time.Second)
	agg := services.NewAggregator(nil, testProduct)
	feed := services.NewMessageFeed(10)
	manifests := services.NewManifestService(corpus)
	settingsSvc := services.NewSettingsService(memory.NewConfigStore(), "/home/builder/.buildboard")
	settings, err := settingsSvc.Get()
	require.NoError(t, err)

	return &App{
		Home:        "/home/builder/.buildboard",
		Config:      settings,
		Settings:    settingsSvc,
		Query:       services.NewQueryService(corpus, agg, settings.Query.MaxLimit),
		Manifests:   manifests,
		Comparisons: services.NewComparisonService(manifests),
		Ingest:      services.NewIngestOrchestrator(corpus, agg, feed, 0),
		Messages:    feed,
		OpenSource: func(dir string) (driven.RecordSource, error) {
			return filesystem.New(dir), nil
		},
	}
}

// resetFlags restores command flag variables between executions.
func resetFlags() {
	verbose, configDir = false, ""
	listFilter, listWhere, listToy, listSkip, listLimit, listJSON = "", nil, false, 0, 0, false
	facetsJSON, problemsJSON = false, false
	compareJSON, manifestJSON, manifestRaw = false, false, false
	importJSON = false
	serveAddr = ""
}

// runCommand executes the root command against a with args and returns
// everything written to stdout and stderr.
func runCommand(t *testing.T, a *App, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	return runCommandContext(context.Background(), t, a, stdin, args...)
}

func runCommandContext(ctx context.Context, t *testing.T, a *App, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	app = a

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		app = nil
	})

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}
