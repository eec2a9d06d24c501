// Package watcher re-runs a callback when the fabric dump directory changes.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"ibtopo/internal/config"
	"ibtopo/internal/loader"
)

const routeDirPrefix = "ibroutes-"

// Watcher watches an input directory and its route directories
type Watcher struct {
	dir      string
	onChange func(ctx context.Context)
	debounce time.Duration
	clock    clockwork.Clock
	log      *slog.Logger

	mu    sync.Mutex
	timer clockwork.Timer
	fire  chan struct{}
}

// New creates a new directory watcher using the configuration's default
// debounce
func New(dir string, log *slog.Logger, onChange func(ctx context.Context)) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		onChange: onChange,
		debounce: config.DefaultDebounce,
		clock:    clockwork.NewRealClock(),
		log:      log,
		fire:     make(chan struct{}, 1),
	}
}

// WithDebounce sets the debounce duration. A non-positive d keeps the
// current one.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// WithClock sets the clock driving the debounce timer
func (w *Watcher) WithClock(c clockwork.Clock) *Watcher {
	w.clock = c
	return w
}

// Watch starts watching the input directory for changes.
// It blocks until the context is cancelled or an error occurs.
// onChange runs on the watch goroutine, so runs never overlap.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}

	// Route dumps live one level down, fsnotify is not recursive
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), routeDirPrefix) {
			w.addDir(fw, filepath.Join(w.dir, e.Name()))
		}
	}

	w.log.Info("watching for changes", "dir", w.dir, "debounce", w.debounce)

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isRouteDir(event.Name) {
				w.addDir(fw, event.Name)
			}
			w.Notify(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)

		case <-w.fire:
			w.log.Info("input changed, re-running")
			w.onChange(ctx)

		case <-ctx.Done():
			w.stop()
			return ctx.Err()
		}
	}
}

// Notify schedules a run when event touches a discovery file, a route dump
// or a route directory. It reports whether the event was relevant.
func (w *Watcher) Notify(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if !loader.IsInputFile(name) && !strings.HasPrefix(name, routeDirPrefix) {
		return false
	}

	w.log.Debug("input event", "path", event.Name, "op", event.Op.String())
	w.schedule()
	return true
}

// schedule restarts the debounce timer
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) addDir(fw *fsnotify.Watcher, dir string) {
	if err := fw.Add(dir); err != nil {
		w.log.Warn("failed to watch directory", "dir", dir, "error", err)
		return
	}
	w.log.Debug("watching route directory", "dir", dir)
}

func isRouteDir(path string) bool {
	if !strings.HasPrefix(filepath.Base(path), routeDirPrefix) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
