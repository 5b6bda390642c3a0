// Package supervisor implements component H: a parent process that spawns
// the worker as a child process (re-execing this same binary in worker mode)
// and restarts it after RESTART_DELAY on a nonzero or abnormal exit.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"syncd/internal/logging"
	"syncd/internal/synerr"
)

// RestartDelay matches spec §4.H / §3: the supervisor sleeps this long after
// an abnormal worker exit before respawning.
const RestartDelay = 5 * time.Second

// WorkerModeEnv is set on the child's environment so it knows to run the
// worker loop instead of re-spawning another supervisor.
const WorkerModeEnv = "SYNCD_WORKER"

// Run is the parent loop: spawn the worker, wait for exit, restart on
// abnormal exit, forward SIGINT/SIGTERM to the child and exit cleanly once
// it has.
func Run(log *logging.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		code, err := spawnAndWait(ctx)
		if ctx.Err() != nil {
			log.Infof("supervisor received shutdown signal, exiting")
			return 0
		}
		if code == 0 {
			log.Infof("worker exited cleanly")
			return 0
		}

		crash := synerr.NewWorkerCrash(code, err)
		log.Errorf("%v, restarting in %s", crash, RestartDelay)
		select {
		case <-time.After(RestartDelay):
		case <-ctx.Done():
			log.Infof("supervisor received shutdown signal during restart delay, exiting")
			return 0
		}
	}
}

// spawnAndWait re-execs the current binary with WorkerModeEnv set, and waits
// for it to exit or for ctx to be cancelled (in which case the child is sent
// SIGTERM and given a chance to shut down cleanly, per spec §4.H "signal the
// child ... stop all watchers, exit cleanly with code 0").
func spawnAndWait(ctx context.Context) (int, error) {
	self, err := os.Executable()
	if err != nil {
		return -1, fmt.Errorf("resolve executable: %w", err)
	}

	cmd := exec.Command(self, os.Args[1:]...)
	cmd.Env = append(os.Environ(), WorkerModeEnv+"=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	setProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start worker: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		return exitCode(err), err
	case <-ctx.Done():
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case err := <-waitErr:
			return exitCode(err), err
		case <-time.After(10 * time.Second):
			_ = cmd.Process.Kill()
			<-waitErr
			return -1, fmt.Errorf("worker did not exit after SIGTERM")
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
