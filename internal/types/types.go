// Package types holds the data model shared across the synchronizer:
// configuration as decoded from config.json, and the runtime work items the
// sync engine produces.
package types

import "fmt"

// TaskConfig is a single task's configuration as decoded from config.json.
// Immutable once loaded; a Task is built from one of these plus a logger.
type TaskConfig struct {
	Name    string   `json:"name"`
	Sources []string `json:"sources,omitempty"`
	Source  string   `json:"source,omitempty"`
	Targets []string `json:"targets,omitempty"`
	Target  string   `json:"target,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
	Workers int      `json:"workers,omitempty"`
	Log     string   `json:"log,omitempty"`
}

// DefaultWorkers is used when TaskConfig.Workers is unset or non-positive.
const DefaultWorkers = 4

// Normalize folds the source/sources and target/targets aliases into the
// plural fields and applies defaults. It does not validate directory
// existence; that happens at Task construction (spec §4.F).
func (c *TaskConfig) Normalize() {
	if c.Source != "" {
		c.Sources = append([]string{c.Source}, c.Sources...)
		c.Source = ""
	}
	if c.Target != "" {
		c.Targets = append([]string{c.Target}, c.Targets...)
		c.Target = ""
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Log == "" {
		c.Log = fmt.Sprintf("logs/%s.log", c.Name)
	}
}

// RootConfig is the top-level shape of config.json.
type RootConfig struct {
	Tasks []TaskConfig `json:"tasks"`
}

// Pair is one (source_root, target_root) mirror unit derived from a
// TaskConfig by the fan rule in spec §3:
//   - equal-length sources/targets -> zipped 1:1
//   - one source, many targets -> fan-out
//   - many sources, one target -> fan-in
type Pair struct {
	SourceRoot string
	TargetRoot string
}

// BuildPairs applies the fan rule. Any other length mismatch is a config
// error at load time.
func BuildPairs(sources, targets []string) ([]Pair, error) {
	switch {
	case len(sources) == 0 || len(targets) == 0:
		return nil, fmt.Errorf("sources and targets must both be non-empty")
	case len(sources) == len(targets):
		pairs := make([]Pair, len(sources))
		for i := range sources {
			pairs[i] = Pair{SourceRoot: sources[i], TargetRoot: targets[i]}
		}
		return pairs, nil
	case len(sources) == 1:
		pairs := make([]Pair, len(targets))
		for i, t := range targets {
			pairs[i] = Pair{SourceRoot: sources[0], TargetRoot: t}
		}
		return pairs, nil
	case len(targets) == 1:
		pairs := make([]Pair, len(sources))
		for i, s := range sources {
			pairs[i] = Pair{SourceRoot: s, TargetRoot: targets[0]}
		}
		return pairs, nil
	default:
		return nil, fmt.Errorf("cannot derive pairs from %d sources and %d targets: lengths must match, or one side must have exactly one entry", len(sources), len(targets))
	}
}

// WorkKind tags a WorkItem as a copy or a deletion.
type WorkKind int

const (
	WorkCopy WorkKind = iota
	WorkDelete
)

// WorkItem is one unit of sync work, produced by the copy/delete plan and
// consumed by the pool (spec §3, §4.C).
type WorkItem struct {
	Kind WorkKind
	// Src is set for WorkCopy.
	Src string
	// Dst is set for WorkCopy (copy destination) and WorkDelete (path to remove).
	Dst string
	// Dir is set for a WorkDelete of a directory entry. Directory deletes
	// must run after every entry beneath them is already gone (rmdir
	// requires an empty directory), so the engine schedules them separately
	// from file deletes rather than handing them to the pool alongside
	// everything else.
	Dir bool
}
