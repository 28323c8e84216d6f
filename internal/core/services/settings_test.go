package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/buildboard/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/buildboard/internal/core/domain"
)

func newTestSettings() (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	return NewSettingsService(store, "/home/builder/.buildboard"), store
}

func TestSettingsService_GetDefaults(t *testing.T) {
	svc, _ := newTestSettings()

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, ":8080", settings.Server.Addr)
	assert.Equal(t, domain.DefaultProduct, settings.Catalog.Product)
	assert.Equal(t, domain.StorageBackendSQLite, settings.Storage.Backend)
	assert.Equal(t, filepath.Join("/home/builder/.buildboard", "data"), settings.Storage.Dir)
	assert.Equal(t, filepath.Join("/home/builder/.buildboard", "cache"), settings.Cache.Dir)
	assert.Equal(t, 50, settings.Query.DefaultLimit)
	assert.Equal(t, 5*time.Second, settings.Corpus.Timeout)
	assert.Equal(t, 10*time.Minute, settings.Scheduler.GetTaskConfig(domain.TaskIDRescan).Interval)
}

func TestSettingsService_NoHome(t *testing.T) {
	svc := NewSettingsService(memory.NewConfigStore(), "")
	d := svc.GetDefaults()
	assert.Empty(t, d.Storage.Dir)
	assert.Empty(t, d.Cache.Dir)
}

func TestSettingsService_ReadsStoredValues(t *testing.T) {
	svc, store := newTestSettings()
	require.NoError(t, store.Set(KeyServerAddr, "127.0.0.1:9000"))
	require.NoError(t, store.Set(KeyQueryMaxLimit, int64(200)))
	require.NoError(t, store.Set(KeyIngestRate, 12.5))
	require.NoError(t, store.Set(KeyCacheEnabled, false))
	require.NoError(t, store.Set(KeyCorpusTimeout, "250ms"))
	require.NoError(t, store.Set(KeyRescanInterval, "30s"))

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", settings.Server.Addr)
	assert.Equal(t, 200, settings.Query.MaxLimit)
	assert.InDelta(t, 12.5, settings.Ingest.Rate, 1e-9)
	assert.False(t, settings.Cache.Enabled)
	assert.Equal(t, 250*time.Millisecond, settings.Corpus.Timeout)
	assert.Equal(t, 30*time.Second, settings.Scheduler.GetTaskConfig(domain.TaskIDRescan).Interval)
	assert.True(t, settings.Scheduler.GetTaskConfig(domain.TaskIDRescan).Enabled)
}

func TestSettingsService_MalformedValuesFallBack(t *testing.T) {
	svc, store := newTestSettings()
	require.NoError(t, store.Set(KeyCorpusTimeout, "soon"))
	require.NoError(t, store.Set(KeyCacheEnabled, "yes"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, settings.Corpus.Timeout)
	assert.True(t, settings.Cache.Enabled)
}

func TestSettingsService_GetDoesNotShareDefaults(t *testing.T) {
	svc, store := newTestSettings()
	require.NoError(t, store.Set(KeyRescanInterval, "1m"))

	_, err := svc.Get()
	require.NoError(t, err)

	defaults := domain.DefaultSchedulerConfig()
	assert.Equal(t, 10*time.Minute, defaults.GetTaskConfig(domain.TaskIDRescan).Interval)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	svc, store := newTestSettings()
	settings := svc.GetDefaults()
	settings.Ingest.Dir = "/srv/records"
	settings.Query.MaxLimit = 100
	settings.Scheduler.TaskConfigs[domain.TaskIDReaggregate] = domain.TaskConfig{Enabled: false, Interval: 2 * time.Hour}

	require.NoError(t, svc.Save(&settings))

	assert.Equal(t, "2h0m0s", store.GetString(KeyReaggregateInterval))
	got, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "/srv/records", got.Ingest.Dir)
	assert.Equal(t, 100, got.Query.MaxLimit)
	assert.Equal(t, domain.TaskConfig{Enabled: false, Interval: 2 * time.Hour},
		got.Scheduler.GetTaskConfig(domain.TaskIDReaggregate))
}

func TestSettingsService_SaveRejectsInvalid(t *testing.T) {
	svc, store := newTestSettings()

	tests := []struct {
		name   string
		mutate func(s *domain.AppSettings)
	}{
		{"empty addr", func(s *domain.AppSettings) { s.Server.Addr = "" }},
		{"unknown backend", func(s *domain.AppSettings) { s.Storage.Backend = "postgres" }},
		{"cache without dir", func(s *domain.AppSettings) { s.Cache.Dir = "" }},
		{"negative rate", func(s *domain.AppSettings) { s.Ingest.Rate = -1 }},
		{"default above max", func(s *domain.AppSettings) { s.Query.DefaultLimit = 1000 }},
		{"zero timeout", func(s *domain.AppSettings) { s.Corpus.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := svc.GetDefaults()
			tt.mutate(&settings)
			err := svc.Save(&settings)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Empty(t, store.Keys())
}

func TestSettingsService_Set(t *testing.T) {
	svc, store := newTestSettings()

	require.NoError(t, svc.Set(KeyQueryDefaultLimit, "25"))
	require.NoError(t, svc.Set(KeyIngestWatch, "false"))
	require.NoError(t, svc.Set(KeyRescanInterval, "90s"))
	require.NoError(t, svc.Set(KeyStorageBackend, "memory"))

	assert.Equal(t, 25, store.GetInt(KeyQueryDefaultLimit))
	assert.Equal(t, "1m30s", store.GetString(KeyRescanInterval))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 25, settings.Query.DefaultLimit)
	assert.False(t, settings.Ingest.Watch)
	assert.Equal(t, domain.StorageBackendMemory, settings.Storage.Backend)
}

func TestSettingsService_SetErrors(t *testing.T) {
	svc, store := newTestSettings()

	assert.ErrorIs(t, svc.Set("no.such.key", "1"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Set(KeyQueryMaxLimit, "lots"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Set(KeyQueryMaxLimit, "10"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Set(KeyStorageBackend, "postgres"), domain.ErrInvalidInput)

	_, ok := store.Get(KeyQueryMaxLimit)
	assert.False(t, ok)
}

func TestSettingsService_Validate(t *testing.T) {
	svc, store := newTestSettings()
	require.NoError(t, svc.Validate())

	require.NoError(t, store.Set(KeyStorageBackend, "postgres"))
	assert.ErrorIs(t, svc.Validate(), domain.ErrInvalidInput)
}

func TestSettingKeys(t *testing.T) {
	keys := SettingKeys()
	assert.Len(t, keys, len(settingsTable))
	assert.Contains(t, keys, KeyRescanInterval)
	assert.IsIncreasing(t, keys)
}

func TestSettingValue(t *testing.T) {
	settings := domain.DefaultAppSettings()

	v, ok := SettingValue(&settings, KeyQueryMaxLimit)
	assert.True(t, ok)
	assert.Equal(t, "500", v)

	v, ok = SettingValue(&settings, KeyCorpusTimeout)
	assert.True(t, ok)
	assert.Equal(t, "5s", v)

	v, ok = SettingValue(&settings, KeyRescanInterval)
	assert.True(t, ok)
	assert.Equal(t, "10m0s", v)

	_, ok = SettingValue(&settings, "nope")
	assert.False(t, ok)
	_, ok = SettingValue(nil, KeyServerAddr)
	assert.False(t, ok)
}
