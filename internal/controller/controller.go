// Package controller implements the design note in spec §9: encapsulate the
// task/watcher lifecycle in a Controller object with explicit start/stop/
// reload methods, instead of the distilled source's module-level globals.
package controller

import (
	"fmt"
	"sync"

	"syncd/internal/configwatch"
	"syncd/internal/fswatch"
	"syncd/internal/logging"
	"syncd/internal/task"
)

// Controller owns the live set of Tasks built from one config.json, and the
// Watcher that observes that file for hot reload (spec §4.G Reloader).
type Controller struct {
	configPath string
	log        *logging.Logger

	mu       sync.Mutex
	tasks    []*task.Task
	cfgWatch *configwatch.Watcher
}

// New builds a Controller for the config file at configPath.
func New(configPath string, log *logging.Logger) *Controller {
	return &Controller{configPath: configPath, log: log}
}

// Start performs the initial load-and-build (spec §4.G Loader) and begins
// watching configPath for subsequent changes, debounced the same as a task's
// own filesystem watcher.
func (c *Controller) Start() error {
	if err := c.rebuild(); err != nil {
		return err
	}

	w, err := configwatch.NewWatcher(c.configPath, fswatch.Debounce, c.Reload)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	c.mu.Lock()
	c.cfgWatch = w
	c.mu.Unlock()
	return nil
}

// Reload implements spec §4.G reload_config(): stop and join all task
// watchers, clear the task list, re-read config.json and rebuild. Individual
// task failures are logged; surviving tasks proceed.
func (c *Controller) Reload() {
	c.log.Infof("config changed, reloading")
	c.mu.Lock()
	tasks := c.tasks
	c.tasks = nil
	c.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}

	if err := c.rebuild(); err != nil {
		c.log.Errorf("reload failed: %v", err)
	}
}

// rebuild reads config.json, validates and starts every task it can, and
// logs (without aborting) any task that fails validation.
func (c *Controller) rebuild() error {
	root, err := configwatch.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var built []*task.Task
	for _, tc := range root.Tasks {
		t, err := task.New(tc)
		if err != nil {
			c.log.Errorf("task %q: %v", tc.Name, err)
			continue
		}
		if err := t.Start(); err != nil {
			c.log.Errorf("task %q: start failed: %v", tc.Name, err)
			continue
		}
		built = append(built, t)
	}

	c.mu.Lock()
	c.tasks = built
	c.mu.Unlock()

	c.log.Infof("controller started %d/%d task(s)", len(built), len(root.Tasks))
	return nil
}

// Stop stops every live task and cancels the config watcher's pending timer.
func (c *Controller) Stop() {
	c.mu.Lock()
	tasks := c.tasks
	c.tasks = nil
	w := c.cfgWatch
	c.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
	if w != nil {
		w.Stop()
	}
}

// Tasks returns the currently live tasks, for diagnostics/tests.
func (c *Controller) Tasks() []*task.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*task.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}
