//go:build !windows

package supervisor

import "golang.org/x/sys/unix"

// AddressSpaceLimit and CPUSecondsLimit are the optional per-process caps
// from spec §5: "address space 1 GiB, CPU seconds 3600 ... applied at
// startup where the platform supports them".
const (
	AddressSpaceLimit = 1 << 30
	CPUSecondsLimit   = 3600
)

// ApplyResourceLimits applies the worker's resource caps. Failures are
// non-fatal: the caps are advisory hardening, not a functional requirement,
// matching the "best-effort" framing in spec §5.
func ApplyResourceLimits() {
	_ = unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: AddressSpaceLimit, Max: AddressSpaceLimit})
	_ = unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: CPUSecondsLimit, Max: CPUSecondsLimit})
}
