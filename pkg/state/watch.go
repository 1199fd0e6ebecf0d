package state

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/odvcencio/focusboard/pkg/logging"
)

// watchDebounce coalesces the burst of events an editor save produces
// into a single reload.
const watchDebounce = 750 * time.Millisecond

// Watcher reloads the store when another process rewrites the document
// file. The parent directory is watched rather than the file itself so
// atomic replace-by-rename is observed.
type Watcher struct {
	store    *Store
	logger   *logging.Logger
	onReload func()

	fw       *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the store's document file. onReload,
// if non-nil, runs after each successful reload.
func NewWatcher(store *Store, logger *logging.Logger, onReload func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	return &Watcher{
		store:    store,
		logger:   logger,
		onReload: onReload,
		fw:       fw,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once the watch is registered; the
// event loop runs until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.store.Path())
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go w.loop(ctx)

	w.logger.Debug(logging.CategoryState, "watch_started", "watching state file", map[string]any{
		"path": w.store.Path(),
	})
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(logging.CategoryState, "watch_error", "state watcher error", map[string]any{
				"error": err.Error(),
			})
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.reload)
}

func (w *Watcher) reload() {
	if err := w.store.Reload(); err != nil {
		w.logger.Warn(logging.CategoryState, "reload_failed", "could not reload state file", map[string]any{
			"path":  w.store.Path(),
			"error": err.Error(),
		})
		return
	}
	w.logger.Info(logging.CategoryState, "reloaded", "state file changed on disk, reloaded", map[string]any{
		"path": w.store.Path(),
	})
	if w.onReload != nil {
		w.onReload()
	}
}

// Stop ends the watch and releases the underlying notifier. Safe to
// call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()
		err = w.fw.Close()
	})
	return err
}
