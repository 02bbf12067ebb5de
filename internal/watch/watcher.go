// Package watch re-triggers work when the merge inputs change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce batches rapid saves into one trigger.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory and calls OnChange once the named files have
// been quiet for the debounce interval.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	names    map[string]bool
	debounce time.Duration
	onChange func(ctx context.Context) error
	logger   *zap.Logger

	mu       sync.Mutex
	triggers int
}

// New watches dir for changes to the given file names (base names).
func New(dir string, names []string, debounce time.Duration, onChange func(ctx context.Context) error, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[filepath.Base(n)] = true
	}
	return &Watcher{
		watcher:  fw,
		dir:      dir,
		names:    set,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Triggers is the number of times OnChange has been called.
func (w *Watcher) Triggers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.triggers
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !w.names[filepath.Base(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// Run blocks until ctx is done or OnChange fails, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	w.logger.Info("watching inputs", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))

	// Timer channels are unbuffered since Go 1.23, so Stop and Reset never
	// leave a stale tick behind.
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("input changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			w.mu.Lock()
			w.triggers++
			w.mu.Unlock()
			if err := w.onChange(ctx); err != nil {
				return err
			}
		}
	}
}
