//go:build windows

package supervisor

import "os/exec"

// setProcAttr is a no-op on Windows; process groups are a POSIX concept.
func setProcAttr(cmd *exec.Cmd) {}
