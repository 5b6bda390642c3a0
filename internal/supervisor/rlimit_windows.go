//go:build windows

package supervisor

// ApplyResourceLimits is a no-op on Windows; setrlimit is POSIX-only (spec §5
// "where the platform supports them").
func ApplyResourceLimits() {}
