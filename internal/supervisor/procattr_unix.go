//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// setProcAttr puts the worker in its own process group so a SIGTERM to the
// supervisor does not also race a signal into the worker outside the
// supervisor's own forwarding path.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
