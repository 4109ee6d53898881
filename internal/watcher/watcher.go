// Package watcher re-syncs a folder when files under it change.
//
// Events are debounced: a burst of writes triggers a single sync once the
// folder has been quiet for the debounce interval. New subdirectories are
// watched as they appear.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/logger"
)

// DefaultDebounce is the quiet period before a sync is triggered.
const DefaultDebounce = 1500 * time.Millisecond

// Syncer runs a non-blocking folder sync.
type Syncer interface {
	TrySync(ctx context.Context, folder string, force bool) (*domain.IngestReport, error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a sync.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts file events to paths the filter accepts,
// typically the loader registry's Supports.
func WithFilter(supports func(path string) bool) Option {
	return func(w *Watcher) {
		if supports != nil {
			w.supports = supports
		}
	}
}

// WithOnSync registers a callback invoked after every sync attempt.
func WithOnSync(fn func(*domain.IngestReport, error)) Option {
	return func(w *Watcher) {
		w.onSync = fn
	}
}

// Watcher watches a folder tree and syncs it on change.
type Watcher struct {
	root     string
	syncer   Syncer
	debounce time.Duration
	supports func(string) bool
	onSync   func(*domain.IngestReport, error)
}

// New creates a watcher for root.
func New(root string, syncer Syncer, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		syncer:   syncer,
		debounce: DefaultDebounce,
		supports: func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Cancellation is not an error.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := addTree(fsw, w.root); err != nil {
		return err
	}
	logger.Info("Watching %s", w.root)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !domain.IsHidden(event.Name) {
					if err := addTree(fsw, event.Name); err != nil {
						logger.Warn("Could not watch %s: %v", event.Name, err)
					}
				}
			}
			if w.relevant(event) {
				logger.Debug("Change detected: %s %s", event.Op, event.Name)
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-timer.C:
			report, err := w.syncer.TrySync(ctx, w.root, false)
			if errors.Is(err, domain.ErrIngestInProgress) {
				logger.Debug("Sync in progress, retrying in %s", w.debounce)
				timer.Reset(w.debounce)
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				logger.Error("Sync failed: %v", err)
			}
			if w.onSync != nil {
				w.onSync(report, err)
			}
		}
	}
}

// relevant reports whether an event can change the indexed corpus.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if domain.IsHidden(event.Name) {
		return false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// The path is gone; a removed directory can hold indexed files.
		return w.supports(event.Name) || filepath.Ext(event.Name) == ""
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return false
		}
		// Directories moved into the tree arrive with their contents.
		return info.IsDir() || w.supports(event.Name)
	case event.Has(fsnotify.Write):
		return w.supports(event.Name)
	default:
		return false
	}
}

// addTree watches dir and every non-hidden directory below it.
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && domain.IsHidden(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
