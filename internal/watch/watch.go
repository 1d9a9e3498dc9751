// Package watch observes the catalog database file and publishes
// source-changed events when an external writer touches it, so the
// browser can drop stale cache entries instead of serving them for a
// full TTL.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wilbur182/genoscope/internal/event"
)

// debounceWindow coalesces the burst of write events a single SQLite
// transaction produces into one notification.
const debounceWindow = 250 * time.Millisecond

// Watcher publishes event.SourceChanged when the watched file changes.
type Watcher struct {
	path       string
	dispatcher *event.Dispatcher
	logger     *slog.Logger
	fsw        *fsnotify.Watcher

	mu     sync.Mutex
	last   time.Time
	closed bool
	done   chan struct{}
}

// New starts watching path and publishing to dispatcher. The parent
// directory is watched rather than the file itself, so rename-and-replace
// writers stay visible.
func New(path string, dispatcher *event.Dispatcher, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{
		path:       path,
		dispatcher: dispatcher,
		logger:     logger,
		fsw:        fsw,
		done:       make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	base := filepath.Base(w.path)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if w.debounced() {
				continue
			}
			w.logger.Debug("catalog changed on disk", "path", w.path, "op", ev.Op.String())
			w.dispatcher.Publish(event.Event{Type: event.SourceChanged, Payload: w.path})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watching is best-effort; a watch error degrades to
			// TTL-based staleness, never to a crash.
			w.logger.Warn("file watcher error", "path", w.path, "error", err)
		}
	}
}

// debounced reports whether this event falls inside the coalescing window
// of the previous one.
func (w *Watcher) debounced() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if now.Sub(w.last) < debounceWindow {
		return true
	}
	w.last = now
	return false
}

// Close stops watching. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fsw.Close()
	<-w.done
	return err
}
