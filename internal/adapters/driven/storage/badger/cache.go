package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/logger"
)

// keyPrefix namespaces partition keys in the database.
const keyPrefix = "partition/"

// Config holds configuration for the partition cache.
type Config struct {
	// Dir is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Dir string

	// InMemory keeps the cache in memory only. Useful for testing.
	InMemory bool

	// GCInterval is how often value log garbage collection runs.
	// Zero disables it.
	GCInterval time.Duration
}

// DefaultConfig returns the configuration for a persistent cache in dir.
func DefaultConfig(dir string) Config {
	return Config{Dir: dir, GCInterval: 10 * time.Minute}
}

// InMemoryConfig returns a configuration for an ephemeral cache.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts the logger package to BadgerDB's Logger interface.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Error("badger: "+trimNewline(format), args...)
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Warn("badger: "+trimNewline(format), args...)
}

func (badgerLogger) Infof(format string, args ...any) {
	logger.Debug("badger: "+trimNewline(format), args...)
}

func (badgerLogger) Debugf(string, ...any) {}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}

// PartitionCache implements driven.PartitionCache on BadgerDB.
type PartitionCache struct {
	db *badger.DB

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ driven.PartitionCache = (*PartitionCache)(nil)

// Open opens or creates a partition cache.
func Open(cfg Config) (*PartitionCache, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, fmt.Errorf("%w: cache directory is required", domain.ErrInvalidInput)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
			return nil, fmt.Errorf("creating cache directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open partition cache: %w", err)
	}

	c := &PartitionCache{db: db, stop: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.wg.Add(1)
		go c.runGC(cfg.GCInterval)
	}
	return c, nil
}

// Get retrieves the cached partition for key.
// Returns nil and no error on a miss. Entries in an unknown format are
// treated as misses.
func (c *PartitionCache) Get(ctx context.Context, key string) (*domain.Partition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read partition %q: %w", key, err)
	}

	part, err := decodePartition(data)
	if errors.Is(err, errUnknownFormat) {
		return nil, nil
	}
	return part, err
}

// Put stores or replaces a partition.
func (c *PartitionCache) Put(ctx context.Context, part *domain.Partition) error {
	if part == nil {
		return domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodePartition(part)
	if err != nil {
		return err
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+part.Key), data)
	})
	if err != nil {
		return fmt.Errorf("write partition %q: %w", part.Key, err)
	}
	return nil
}

// Close stops garbage collection and closes the database.
func (c *PartitionCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
		err = c.db.Close()
	})
	return err
}

func (c *PartitionCache) runGC(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			// Collect until a pass finds nothing worth rewriting.
			for c.db.RunValueLogGC(0.5) == nil { //nolint:revive // empty loop body
			}
		}
	}
}
