// Package fswatch implements component E: subscribing to recursive
// filesystem change events under a source root and debouncing bursts into a
// single callback. Grounded on randalmurphal-orc's internal/watcher/watcher.go
// (fsnotify.Watcher + a Debouncer type wired to OnConfigChange-style
// callbacks), generalized from "watch two fixed directories" to "watch an
// arbitrary, possibly deep, source root" by walking the tree at start time
// and re-subscribing to any directory created afterward.
package fswatch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce matches spec §4.E: DEBOUNCE = 1.0s.
const Debounce = 1 * time.Second

// Debouncer collapses a burst of calls to Trigger within the window into a
// single call to fn, restarting the window on every Trigger (spec §4.E:
// "cancel the existing debounce timer if active; schedule a new timer").
type Debouncer struct {
	window time.Duration
	fn     func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer builds a Debouncer that calls fn after window has elapsed
// since the last Trigger.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Trigger (re)schedules fn to run after the debounce window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fn)
}

// Stop cancels any pending timer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Watcher subscribes to recursive change events under one source root and
// calls onChange(path) for each create, write, remove or rename event
// (chmod-only events are ignored). No lock is held during the call; the
// callback does its own locking (internal/task records the path under its
// pending-paths mutex).
type Watcher struct {
	root string
	fsw  *fsnotify.Watcher

	done chan struct{}
	wg   sync.WaitGroup
}

// New subscribes to root and every subdirectory beneath it. fsnotify has no
// native recursive mode, so every directory is Add()ed individually up
// front and newly created directories are added as they appear — the same
// pattern orc's watcher uses for its own tree of task/initiative files.
func New(root string, onChange func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{root: root, fsw: fsw, done: make(chan struct{})}

	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = fsw.Add(path)
		}
		return nil
	}); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop(onChange)

	return w, nil
}

func (w *Watcher) loop(onChange func(path string)) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(ev.Name)
				}
			}
			onChange(ev.Name)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Individual watch errors are non-fatal: the source simply
			// loses coverage for that path (spec §7 WatcherError policy is
			// applied at subscription time in internal/task, not here).
		}
	}
}

// Stop releases the underlying OS watch and joins the delivery goroutine
// (spec §3: "Watchers hold OS resources; release on stop").
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsw.Close()
	w.wg.Wait()
}
