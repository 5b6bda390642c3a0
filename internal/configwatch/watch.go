package configwatch

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher debounces config.json modification events and fires onChange once
// quiescent. The events come from viper's WatchConfig, an fsnotify watch on
// the config file's parent directory that reports only the config file; it
// does not poll.
type Watcher struct {
	v *viper.Viper

	mu       sync.Mutex
	timer    *time.Timer
	debounce time.Duration
	onChange func()
}

// NewWatcher starts watching configPath for changes. onChange is invoked
// (on the debounce timer's own goroutine, after the debounce window) once
// per coalesced burst of modifications.
func NewWatcher(configPath string, debounce time.Duration, onChange func()) (*Watcher, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	// Best-effort initial read; a malformed config at watch-setup time is
	// not fatal to watching — Load() is the authority on validity and is
	// called again by the reloader after onChange fires.
	_ = v.ReadInConfig()

	w := &Watcher{v: v, debounce: debounce, onChange: onChange}

	v.OnConfigChange(func(_ fsnotify.Event) {
		w.scheduleFire()
	})
	v.WatchConfig()

	return w, nil
}

func (w *Watcher) scheduleFire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

// Stop cancels any pending debounce timer. It does not unwind viper's
// internal fsnotify watch (the library exposes no such hook); callers treat
// the Watcher as scoped to process lifetime, consistent with the Reloader
// owning exactly one Watcher for the process's whole run.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
