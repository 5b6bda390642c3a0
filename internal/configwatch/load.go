// Package configwatch implements component G: JSON config decoding and
// validation, plus viper-backed change notification for hot reload. The
// decode/validate half follows the teacher's internal/config/config.go
// "fail early on malformed config" posture; the notification half rides
// github.com/spf13/viper's WatchConfig/OnConfigChange (itself backed by
// fsnotify), the way joshyorko-rcc and randalmurphal-orc use viper for
// their own config reload paths.
package configwatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"syncd/internal/types"
)

// Load reads and validates config.json at path, returning one RootConfig
// with every TaskConfig normalized (aliases folded, defaults applied).
// Structural problems (malformed JSON, empty task list) are fatal for the
// whole file; per-task problems (bad directories, mismatched fan rule) are
// NOT checked here — ValidateTask does that so the loader can keep
// surviving tasks alive per spec §4.G / §7 ConfigError policy.
func Load(path string) (types.RootConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.RootConfig{}, fmt.Errorf("read config: %w", err)
	}

	var root types.RootConfig
	if err := json.Unmarshal(data, &root); err != nil {
		return types.RootConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if len(root.Tasks) == 0 {
		return types.RootConfig{}, fmt.Errorf("config has no tasks")
	}

	for i := range root.Tasks {
		root.Tasks[i].Normalize()
	}
	return root, nil
}

// ValidateTask checks the per-task preconditions from spec §4.F:
// sources must be existing directories; each target is created if missing,
// then probed with a marker file write+delete. Returns the derived pairs on
// success.
func ValidateTask(cfg types.TaskConfig) ([]types.Pair, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("task has no name")
	}
	for _, src := range cfg.Sources {
		info, err := os.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("source %q is not a directory", src)
		}
	}
	for _, tgt := range cfg.Targets {
		if err := os.MkdirAll(tgt, 0o755); err != nil {
			return nil, fmt.Errorf("target %q: cannot create: %w", tgt, err)
		}
		if err := probeWritable(tgt); err != nil {
			return nil, fmt.Errorf("target %q: %w", tgt, err)
		}
	}
	pairs, err := types.BuildPairs(cfg.Sources, cfg.Targets)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", cfg.Name, err)
	}
	return pairs, nil
}

// probeWritable writes and removes a `.sync_test_{epoch}` marker file in
// dir, per spec §4.F and §6.
func probeWritable(dir string) error {
	marker := filepath.Join(dir, fmt.Sprintf(".sync_test_%d", time.Now().Unix()))
	if err := os.WriteFile(marker, []byte{}, 0o644); err != nil {
		return fmt.Errorf("write probe marker: %w", err)
	}
	return os.Remove(marker)
}
