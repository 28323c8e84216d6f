package domain

import "time"

const unknownDescription = "Unknown"

// StorageBackend selects the corpus store implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageBackendSQLite persists the corpus in a SQLite database.
	StorageBackendSQLite StorageBackend = "sqlite"

	// StorageBackendMemory keeps the corpus in process memory.
	StorageBackendMemory StorageBackend = "memory"
)

// IsValid returns true if the storage backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageBackendSQLite, StorageBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case StorageBackendSQLite:
		return "SQLite (persistent)"
	case StorageBackendMemory:
		return "Memory (ephemeral)"
	default:
		return unknownDescription
	}
}

// AllStorageBackends returns all available storage backends.
func AllStorageBackends() []StorageBackend {
	return []StorageBackend{StorageBackendSQLite, StorageBackendMemory}
}

// ServerSettings holds HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address of the HTTP API.
	Addr string `validate:"required"`
}

// CatalogSettings holds catalog-wide configuration.
type CatalogSettings struct {
	// Product is the canonical product marker records must carry.
	Product string `validate:"required"`
}

// StorageSettings holds corpus store configuration.
type StorageSettings struct {
	// Backend selects the store implementation.
	Backend StorageBackend `validate:"required,oneof=sqlite memory"`

	// Dir is the data directory of persistent backends.
	Dir string
}

// CacheSettings holds partition cache configuration.
type CacheSettings struct {
	// Enabled turns the persistent partition cache on.
	Enabled bool

	// Dir is the cache directory.
	Dir string `validate:"required_if=Enabled true"`
}

// IngestSettings holds record source configuration.
type IngestSettings struct {
	// Dir is the directory scanned for records. Empty disables ingestion.
	Dir string

	// Watch keeps ingesting new records after the initial scan.
	Watch bool

	// Rate is the maximum records ingested per second. Zero is unlimited.
	Rate float64 `validate:"gte=0"`
}

// QuerySettings holds listing configuration.
type QuerySettings struct {
	// DefaultLimit is the page size when none is requested.
	DefaultLimit int `validate:"gt=0,ltefield=MaxLimit"`

	// MaxLimit caps the requested page size.
	MaxLimit int `validate:"gt=0"`
}

// CorpusSettings holds corpus accessor configuration.
type CorpusSettings struct {
	// Timeout bounds each accessor call.
	Timeout time.Duration `validate:"gt=0"`
}

// MessageSettings holds message feed configuration.
type MessageSettings struct {
	// Capacity is the number of retained messages.
	Capacity int `validate:"gt=0"`
}

// AppSettings holds all application settings.
type AppSettings struct {
	Server    ServerSettings
	Catalog   CatalogSettings
	Storage   StorageSettings
	Cache     CacheSettings
	Ingest    IngestSettings
	Query     QuerySettings
	Corpus    CorpusSettings
	Messages  MessageSettings
	Scheduler SchedulerConfig
}

// DefaultProduct is the default canonical product marker.
const DefaultProduct = "couchbase-server"

// DefaultAppSettings returns settings with sensible defaults.
// Directories are left empty; callers resolve them against the home
// directory.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Server:  ServerSettings{Addr: ":8080"},
		Catalog: CatalogSettings{Product: DefaultProduct},
		Storage: StorageSettings{Backend: StorageBackendSQLite},
		Cache:   CacheSettings{Enabled: true},
		Ingest:  IngestSettings{Watch: true},
		Query: QuerySettings{
			DefaultLimit: 50,
			MaxLimit:     500,
		},
		Corpus:    CorpusSettings{Timeout: 5 * time.Second},
		Messages:  MessageSettings{Capacity: 100},
		Scheduler: DefaultSchedulerConfig(),
	}
}
