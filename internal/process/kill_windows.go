//go:build windows

package process

import "os"

// KillProcessGroup kills the process with the given PID. Windows has no
// process groups in the POSIX sense; child processes are handled by the
// browser's own job object.
func KillProcessGroup(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}
