package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	KeyServerAddr          = "server.addr"
	KeyCatalogProduct      = "catalog.product"
	KeyStorageBackend      = "storage.backend"
	KeyStorageDir          = "storage.dir"
	KeyCacheEnabled        = "cache.enabled"
	KeyCacheDir            = "cache.dir"
	KeyIngestDir           = "ingest.dir"
	KeyIngestWatch         = "ingest.watch"
	KeyIngestRate          = "ingest.rate"
	KeyQueryDefaultLimit   = "query.default_limit"
	KeyQueryMaxLimit       = "query.max_limit"
	KeyCorpusTimeout       = "corpus.timeout"
	KeyMessagesCapacity    = "messages.capacity"
	KeySchedulerEnabled    = "scheduler.enabled"
	KeyRescanEnabled       = "scheduler.rescan.enabled"
	KeyRescanInterval      = "scheduler.rescan.interval"
	KeyReaggregateEnabled  = "scheduler.reaggregate.enabled"
	KeyReaggregateInterval = "scheduler.reaggregate.interval"
)

type settingKind int

const (
	kindString settingKind = iota
	kindBool
	kindInt
	kindFloat
	kindDuration
)

// setting binds a config key to a field of AppSettings.
type setting struct {
	kind settingKind
	get  func(s *domain.AppSettings) any
	set  func(s *domain.AppSettings, v any)
}

var settingsTable = map[string]setting{
	KeyServerAddr: {kindString,
		func(s *domain.AppSettings) any { return s.Server.Addr },
		func(s *domain.AppSettings, v any) { s.Server.Addr = v.(string) }},
	KeyCatalogProduct: {kindString,
		func(s *domain.AppSettings) any { return s.Catalog.Product },
		func(s *domain.AppSettings, v any) { s.Catalog.Product = v.(string) }},
	KeyStorageBackend: {kindString,
		func(s *domain.AppSettings) any { return s.Storage.Backend.String() },
		func(s *domain.AppSettings, v any) { s.Storage.Backend = domain.StorageBackend(v.(string)) }},
	KeyStorageDir: {kindString,
		func(s *domain.AppSettings) any { return s.Storage.Dir },
		func(s *domain.AppSettings, v any) { s.Storage.Dir = v.(string) }},
	KeyCacheEnabled: {kindBool,
		func(s *domain.AppSettings) any { return s.Cache.Enabled },
		func(s *domain.AppSettings, v any) { s.Cache.Enabled = v.(bool) }},
	KeyCacheDir: {kindString,
		func(s *domain.AppSettings) any { return s.Cache.Dir },
		func(s *domain.AppSettings, v any) { s.Cache.Dir = v.(string) }},
	KeyIngestDir: {kindString,
		func(s *domain.AppSettings) any { return s.Ingest.Dir },
		func(s *domain.AppSettings, v any) { s.Ingest.Dir = v.(string) }},
	KeyIngestWatch: {kindBool,
		func(s *domain.AppSettings) any { return s.Ingest.Watch },
		func(s *domain.AppSettings, v any) { s.Ingest.Watch = v.(bool) }},
	KeyIngestRate: {kindFloat,
		func(s *domain.AppSettings) any { return s.Ingest.Rate },
		func(s *domain.AppSettings, v any) { s.Ingest.Rate = v.(float64) }},
	KeyQueryDefaultLimit: {kindInt,
		func(s *domain.AppSettings) any { return s.Query.DefaultLimit },
		func(s *domain.AppSettings, v any) { s.Query.DefaultLimit = v.(int) }},
	KeyQueryMaxLimit: {kindInt,
		func(s *domain.AppSettings) any { return s.Query.MaxLimit },
		func(s *domain.AppSettings, v any) { s.Query.MaxLimit = v.(int) }},
	KeyCorpusTimeout: {kindDuration,
		func(s *domain.AppSettings) any { return s.Corpus.Timeout },
		func(s *domain.AppSettings, v any) { s.Corpus.Timeout = v.(time.Duration) }},
	KeyMessagesCapacity: {kindInt,
		func(s *domain.AppSettings) any { return s.Messages.Capacity },
		func(s *domain.AppSettings, v any) { s.Messages.Capacity = v.(int) }},
	KeySchedulerEnabled: {kindBool,
		func(s *domain.AppSettings) any { return s.Scheduler.Enabled },
		func(s *domain.AppSettings, v any) { s.Scheduler.Enabled = v.(bool) }},
	KeyRescanEnabled:       taskSetting(domain.TaskIDRescan, false),
	KeyRescanInterval:      taskSetting(domain.TaskIDRescan, true),
	KeyReaggregateEnabled:  taskSetting(domain.TaskIDReaggregate, false),
	KeyReaggregateInterval: taskSetting(domain.TaskIDReaggregate, true),
}

func taskSetting(taskID string, interval bool) setting {
	if interval {
		return setting{kindDuration,
			func(s *domain.AppSettings) any { return s.Scheduler.GetTaskConfig(taskID).Interval },
			func(s *domain.AppSettings, v any) {
				cfg := s.Scheduler.GetTaskConfig(taskID)
				cfg.Interval = v.(time.Duration)
				setTaskConfig(s, taskID, cfg)
			}}
	}
	return setting{kindBool,
		func(s *domain.AppSettings) any { return s.Scheduler.GetTaskConfig(taskID).Enabled },
		func(s *domain.AppSettings, v any) {
			cfg := s.Scheduler.GetTaskConfig(taskID)
			cfg.Enabled = v.(bool)
			setTaskConfig(s, taskID, cfg)
		}}
}

func setTaskConfig(s *domain.AppSettings, taskID string, cfg domain.TaskConfig) {
	if s.Scheduler.TaskConfigs == nil {
		s.Scheduler.TaskConfigs = make(map[string]domain.TaskConfig)
	}
	s.Scheduler.TaskConfigs[taskID] = cfg
}

// SettingKeys returns every recognised setting key, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingsTable))
	for k := range settingsTable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingValue returns the string form of the setting key in settings.
func SettingValue(settings *domain.AppSettings, key string) (string, bool) {
	def, ok := settingsTable[key]
	if !ok || settings == nil {
		return "", false
	}
	return fmt.Sprint(storedValue(def.kind, def.get(settings))), true
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	home        string
	validate    *validator.Validate
}

// NewSettingsService creates a new settings service.
// home is the application directory that default data and cache
// directories are resolved against; empty leaves them unset.
func NewSettingsService(configStore driven.ConfigStore, home string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		home:        home,
		validate:    validator.New(),
	}
}

// Get retrieves current application settings.
// Missing or malformed values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := s.GetDefaults()

	// Start from a private copy of the default task map.
	tasks := make(map[string]domain.TaskConfig, len(settings.Scheduler.TaskConfigs))
	for k, v := range settings.Scheduler.TaskConfigs {
		tasks[k] = v
	}
	settings.Scheduler.TaskConfigs = tasks

	for key, def := range settingsTable {
		if v, ok := s.read(key, def.kind); ok {
			def.set(&settings, v)
		}
	}
	return &settings, nil
}

// Save validates and persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.check(settings); err != nil {
		return err
	}
	for _, key := range SettingKeys() {
		def := settingsTable[key]
		if err := s.configStore.Set(key, storedValue(def.kind, def.get(settings))); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Set updates a single setting from its string form.
func (s *SettingsService) Set(key, value string) error {
	def, ok := settingsTable[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	parsed, err := parseSetting(def.kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	def.set(settings, parsed)
	if err := s.check(settings); err != nil {
		return err
	}

	if err := s.configStore.Set(key, storedValue(def.kind, parsed)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.check(settings)
}

// GetDefaults returns default settings with directories resolved
// against the application directory.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	d := domain.DefaultAppSettings()
	if s.home != "" {
		d.Storage.Dir = filepath.Join(s.home, "data")
		d.Cache.Dir = filepath.Join(s.home, "cache")
	}
	return d
}

func (s *SettingsService) check(settings *domain.AppSettings) error {
	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q", domain.ErrInvalidInput, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// read returns the stored value for key converted to kind.
func (s *SettingsService) read(key string, kind settingKind) (any, bool) {
	raw, ok := s.configStore.Get(key)
	if !ok {
		return nil, false
	}
	switch kind {
	case kindString:
		v, ok := raw.(string)
		return v, ok && v != ""
	case kindBool:
		v, ok := raw.(bool)
		return v, ok
	case kindInt:
		v := s.configStore.GetInt(key)
		return v, v != 0
	case kindFloat:
		return s.configStore.GetFloat(key), true
	case kindDuration:
		str, ok := raw.(string)
		if !ok {
			return nil, false
		}
		d, err := time.ParseDuration(str)
		return d, err == nil && d > 0
	}
	return nil, false
}

func parseSetting(kind settingKind, value string) (any, error) {
	switch kind {
	case kindBool:
		return strconv.ParseBool(value)
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindDuration:
		return time.ParseDuration(value)
	default:
		return value, nil
	}
}

// storedValue converts a setting to its config file representation.
// Durations are stored in their string form.
func storedValue(kind settingKind, v any) any {
	if kind == kindDuration {
		if d, ok := v.(time.Duration); ok {
			return d.String()
		}
	}
	return v
}
