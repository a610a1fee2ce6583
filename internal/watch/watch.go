// Package watch runs a callback whenever a file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/forkpipe/pkg/log"
)

// DefaultDebounceDelay is used when Config.DebounceDelay is zero.
const DefaultDebounceDelay = 100 * time.Millisecond

// Config holds watcher options.
type Config struct {
	// DebounceDelay is the quiet period after the last change before the
	// callback runs.
	DebounceDelay time.Duration

	// Initial runs the callback once before waiting for changes.
	Initial bool
}

// Watcher watches one file. The directory is watched rather than the file
// so that editors replacing the file by rename are still seen.
type Watcher struct {
	path     string
	delay    time.Duration
	initial  bool
	onChange func(context.Context)
	logger   log.Logger

	mu       sync.Mutex
	debounce *time.Timer
	wg       sync.WaitGroup
}

// New creates a Watcher that calls onChange after path is written or
// created. Calls never overlap.
func New(path string, cfg Config, onChange func(context.Context), logger log.Logger) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	if logger == nil {
		logger = log.Discard
	}
	return &Watcher{
		path:     filepath.Clean(path),
		delay:    cfg.DebounceDelay,
		initial:  cfg.Initial,
		onChange: onChange,
		logger:   logger,
	}
}

// Run watches until ctx is done. It returns an error only if the watch
// cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching file", log.String("path", w.path))

	var running sync.Mutex
	fire := func() {
		running.Lock()
		defer running.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.onChange(ctx)
	}

	defer func() {
		w.mu.Lock()
		if w.debounce != nil && w.debounce.Stop() {
			w.wg.Done()
		}
		w.mu.Unlock()
		w.wg.Wait()
	}()

	if w.initial {
		fire()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("file changed", log.String("path", event.Name), log.String("op", event.Op.String()))
			w.schedule(fire)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", log.Err(err))
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule(fire func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil && w.debounce.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.debounce = time.AfterFunc(w.delay, func() {
		defer w.wg.Done()
		fire()
	})
}
