package supervisor

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"syncd/internal/controller"
	"syncd/internal/logging"
)

// RunWorker is the child process's main loop: apply resource limits, build
// and start the controller from configPath, then block until SIGINT/SIGTERM,
// at which point it stops the controller (joining every task's watchers) and
// returns 0.
func RunWorker(configPath string, log *logging.Logger) int {
	ApplyResourceLimits()

	ctrl := controller.New(configPath, log)
	if err := ctrl.Start(); err != nil {
		log.Errorf("controller start failed: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Infof("worker received shutdown signal, stopping tasks")
	ctrl.Stop()
	return 0
}

// IsWorkerMode reports whether this process was re-execed by a supervisor
// parent (WorkerModeEnv set) rather than launched directly by the user.
func IsWorkerMode() bool {
	return os.Getenv(WorkerModeEnv) != ""
}
