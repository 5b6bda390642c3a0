// Package synerr names the error taxonomy from spec §7. These are kinds, not
// a type hierarchy a caller switches on. Four kinds have a type here:
// ConfigError, WatcherError, PassError, WorkerCrash. IoTransient and IoFatal
// have none: single-file copy/delete failures are retried inside atomicfs
// and logged by syncengine as plain wrapped errors.
package synerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError wraps a fatal per-task configuration problem: missing/malformed
// config, invalid pair dimensions, unreachable source, unwritable target.
// The loader logs it and continues with the remaining tasks.
type ConfigError struct {
	Task string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("task %q: config error: %v", e.Task, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError for task.
func NewConfigError(task string, err error) error {
	return &ConfigError{Task: task, Err: err}
}

// WatcherError wraps a subscription failure for one source root. The source
// is left unwatched; periodic reload and manual syncs remain possible.
type WatcherError struct {
	Root string
	Err  error
}

func (e *WatcherError) Error() string {
	return fmt.Sprintf("watch %q: %v", e.Root, e.Err)
}

func (e *WatcherError) Unwrap() error { return e.Err }

// NewWatcherError builds a WatcherError for root.
func NewWatcherError(root string, err error) error {
	return &WatcherError{Root: root, Err: err}
}

// PassError wraps an uncaught failure inside a sync pass. It is captured
// with a stack trace (via github.com/pkg/errors) because it crosses a
// goroutine boundary the caller cannot otherwise diagnose after the fact; the
// pass lock is released and the pending flag is honored regardless.
type PassError struct {
	Task  string
	cause error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("task %q: pass failed: %v", e.Task, e.cause)
}

func (e *PassError) Unwrap() error { return e.cause }

// NewPassError captures a stack trace at the point of recovery.
func NewPassError(task string, cause interface{}) error {
	var err error
	switch v := cause.(type) {
	case error:
		err = errors.WithStack(v)
	default:
		err = errors.Errorf("%v", v)
	}
	return &PassError{Task: task, cause: err}
}

// StackTrace renders the captured stack, if any, for logging.
func StackTrace(err error) string {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}
	var st stackTracer
	for e := err; e != nil; {
		if s, ok := e.(stackTracer); ok {
			st = s
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if st == nil {
		return ""
	}
	return fmt.Sprintf("%+v", st.StackTrace())
}

// WorkerCrash wraps a nonzero/abnormal exit of the worker subprocess, caught
// by the supervisor to decide on a restart.
type WorkerCrash struct {
	ExitCode int
	Err      error
}

func (e *WorkerCrash) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker crashed (exit %d): %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("worker exited with code %d", e.ExitCode)
}

func (e *WorkerCrash) Unwrap() error { return e.Err }

// NewWorkerCrash builds a WorkerCrash for a worker subprocess that exited
// with the given code. err is the exec/wait error that surfaced the exit
// (nil for a clean exit code 0, which callers don't construct this for).
func NewWorkerCrash(exitCode int, err error) error {
	return &WorkerCrash{ExitCode: exitCode, Err: err}
}
