// Package task implements component F: Task wraps atomicfs/pathutil/
// syncengine/fswatch for one named sync unit, owning its logger, pass lock,
// pending-paths set, counters, and heartbeat.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"syncd/internal/atomicfs"
	"syncd/internal/configwatch"
	"syncd/internal/fswatch"
	"syncd/internal/logging"
	"syncd/internal/syncengine"
	"syncd/internal/synerr"
	"syncd/internal/types"
)

// HeartbeatInterval matches spec §4.F: logs "task alive" every hour.
const HeartbeatInterval = 1 * time.Hour

// Task is the runtime counterpart of a types.TaskConfig (spec §3).
type Task struct {
	cfg   types.TaskConfig
	pairs []types.Pair
	log   *logging.Logger

	// passLock ensures at most one sync pass runs at a time (spec §3
	// invariant "At most one sync pass per task runs at a time").
	passLock sync.Mutex
	// pending is the "another pass requested" flag set when an event
	// arrives while a pass is in flight (spec §3 "no lost wake-up").
	pending   bool
	pendingMu sync.Mutex

	// changedPaths is the set of paths observed since the last pass drained
	// it, protected by its own mutex per spec §3/§5.
	changedMu    sync.Mutex
	changedPaths map[string]struct{}

	countersMu sync.RWMutex
	counters   *syncengine.Counters

	debouncer *fswatch.Debouncer
	watchers  []*fswatch.Watcher

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New validates cfg (spec §4.F construction) and returns a Task ready to
// Start. A validation failure is a ConfigError; the caller (controller) logs
// it and continues with other tasks.
func New(cfg types.TaskConfig) (*Task, error) {
	pairs, err := configwatch.ValidateTask(cfg)
	if err != nil {
		return nil, synerr.NewConfigError(cfg.Name, err)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, synerr.NewConfigError(cfg.Name, fmt.Errorf("init logger: %w", err))
	}

	t := &Task{
		cfg:          cfg,
		pairs:        pairs,
		log:          log,
		changedPaths: make(map[string]struct{}),
		stop:         make(chan struct{}),
	}
	t.debouncer = fswatch.NewDebouncer(fswatch.Debounce, t.sync)
	return t, nil
}

// Start implements spec §4.F start(): cleans up leftover temp artifacts,
// runs one initial full sync, launches the heartbeat, and subscribes a
// watcher per source root. WatcherError for one root is logged and does not
// prevent the task from starting; that source is simply unwatched.
func (t *Task) Start() error {
	for _, pair := range t.pairs {
		if err := atomicfs.CleanupTmpFiles(pair.TargetRoot); err != nil {
			t.log.Warnf("cleanup tmp files under %s: %v", pair.TargetRoot, err)
		}
	}

	t.log.Infof("task %q starting, %d pair(s)", t.cfg.Name, len(t.pairs))
	t.sync()

	t.wg.Add(1)
	go t.heartbeatLoop()

	seen := make(map[string]struct{})
	for _, pair := range t.pairs {
		if _, ok := seen[pair.SourceRoot]; ok {
			continue
		}
		seen[pair.SourceRoot] = struct{}{}

		w, err := fswatch.New(pair.SourceRoot, t.onEvent)
		if err != nil {
			t.log.Errorf("%v", synerr.NewWatcherError(pair.SourceRoot, err))
			continue
		}
		t.watchers = append(t.watchers, w)
	}

	return nil
}

// Stop implements spec §4.F stop(): stops and joins watchers, cancels the
// pending debounce timer.
func (t *Task) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	for _, w := range t.watchers {
		w.Stop()
	}
	t.debouncer.Stop()
	t.wg.Wait()
	t.log.Infof("task %q stopped", t.cfg.Name)
}

// onEvent is the watcher delivery callback: record the path and (re)start
// the debounce timer. Spec §9's open question resolves to timer-only (no
// synchronous sync() call here), per the spec's own recommendation.
func (t *Task) onEvent(path string) {
	t.changedMu.Lock()
	t.changedPaths[path] = struct{}{}
	t.changedMu.Unlock()

	t.debouncer.Trigger()
}

// sync is the reentrant pass entry point (spec §4.C "Reentrancy"): a
// non-blocking acquire on passLock. If busy, it sets the pending flag and
// returns immediately; whoever holds the lock checks the flag on release and
// re-enters once more, guaranteeing no lost wake-up.
func (t *Task) sync() {
	if !t.passLock.TryLock() {
		t.pendingMu.Lock()
		t.pending = true
		t.pendingMu.Unlock()
		return
	}

	t.runPassLocked()
	t.passLock.Unlock()

	t.pendingMu.Lock()
	again := t.pending
	t.pending = false
	t.pendingMu.Unlock()

	if again {
		t.sync()
	}
}

// runPassLocked executes one pass. Caller holds passLock.
func (t *Task) runPassLocked() {
	defer func() {
		if r := recover(); r != nil {
			err := synerr.NewPassError(t.cfg.Name, r)
			t.log.Errorf("%v\n%s", err, synerr.StackTrace(err))
		}
	}()

	t.changedMu.Lock()
	n := len(t.changedPaths)
	t.changedPaths = make(map[string]struct{})
	t.changedMu.Unlock()

	t.log.Infof("detected %d changes", n)

	passCounters := &syncengine.Counters{}
	t.countersMu.Lock()
	t.counters = passCounters
	t.countersMu.Unlock()

	if err := syncengine.Run(context.Background(), t.pairs, t.cfg.Exclude, t.cfg.Workers, t.log, passCounters); err != nil {
		t.log.Errorf("%v", synerr.NewPassError(t.cfg.Name, err))
		return
	}

	copies, deletions := passCounters.Snapshot()
	t.log.Infof("pass complete: %d copies, %d deletions", copies, deletions)
}

func (t *Task) heartbeatLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.log.Infof("task alive")
		}
	}
}

// Name returns the task's configured name.
func (t *Task) Name() string { return t.cfg.Name }

// Counters returns the counters of the pass in flight, or of the most
// recently completed pass when none is running (the counters are replaced at
// pass start), useful for tests and diagnostics. Returns (0, 0) before the
// first pass has started.
func (t *Task) Counters() (copies, deletions int) {
	t.countersMu.RLock()
	c := t.counters
	t.countersMu.RUnlock()
	if c == nil {
		return 0, 0
	}
	return c.Snapshot()
}
