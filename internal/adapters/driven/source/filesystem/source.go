package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/ports/driven"
	"github.com/custodia-labs/buildboard/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.RecordSource = (*Source)(nil)

// Source reads records from files under a root directory.
type Source struct {
	root string

	mu       sync.Mutex
	watchers []*fsnotify.Watcher
}

// New creates a source rooted at dir.
func New(dir string) *Source {
	return &Source{root: dir}
}

// Name identifies the source.
func (s *Source) Name() string {
	return "filesystem:" + s.root
}

// Scan reads every record file under the root, in lexical path order.
// Unreadable or malformed files are reported on the error channel.
func (s *Source) Scan(ctx context.Context) (<-chan domain.RawRecord, <-chan error) {
	recs := make(chan domain.RawRecord)
	errs := make(chan error, 1)

	go func() {
		defer close(recs)
		defer close(errs)

		err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == s.root {
					return err
				}
				return emit(ctx, errs, fmt.Errorf("walk %s: %w", path, err))
			}
			if d.IsDir() || !isRecordFile(path) {
				return nil
			}
			return s.readFile(ctx, path, recs, errs)
		})
		if err != nil && ctx.Err() == nil {
			_ = emit(ctx, errs, fmt.Errorf("scan %s: %w", s.root, err))
		}
	}()

	return recs, errs
}

// Watch delivers records from files created or rewritten under the root
// until ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan domain.RawRecord, <-chan error, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(w, s.root); err != nil {
		w.Close()
		return nil, nil, err
	}

	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()

	recs := make(chan domain.RawRecord)
	errs := make(chan error, 1)

	go func() {
		defer close(recs)
		defer close(errs)
		defer s.release(w)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := addTree(w, event.Name); err != nil {
							_ = emit(ctx, errs, err)
						}
						continue
					}
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				if !isRecordFile(event.Name) {
					continue
				}
				if err := s.readFile(ctx, event.Name, recs, errs); err != nil {
					return
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if emit(ctx, errs, fmt.Errorf("watch %s: %w", s.root, err)) != nil {
					return
				}
			}
		}
	}()

	return recs, errs, nil
}

// Close stops any active watches.
func (s *Source) Close() error {
	s.mu.Lock()
	watchers := s.watchers
	s.watchers = nil
	s.mu.Unlock()

	var errs []error
	for _, w := range watchers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

func (s *Source) release(w *fsnotify.Watcher) {
	s.mu.Lock()
	for i, cur := range s.watchers {
		if cur == w {
			s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	_ = w.Close()
}

// readFile sends the records of one file. It returns an error only
// when ctx is done.
func (s *Source) readFile(ctx context.Context, path string, recs chan<- domain.RawRecord, errs chan<- error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return emit(ctx, errs, fmt.Errorf("read %s: %w", path, err))
	}
	parsed, err := decodeFile(path, data)
	if err != nil {
		return emit(ctx, errs, fmt.Errorf("%s: %w", path, err))
	}
	logger.Debug("Read %d records from %s", len(parsed), path)

	for _, rec := range parsed {
		select {
		case recs <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func emit(ctx context.Context, errs chan<- error, err error) error {
	select {
	case errs <- err:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// addTree watches dir and every directory below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
