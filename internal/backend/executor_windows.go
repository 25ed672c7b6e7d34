//go:build windows

package backend

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup is a no-op on Windows; StopProcess kills the single pid.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup terminates the process identified by pid. Windows has no
// direct equivalent to a POSIX process group signal here, so only the
// backend process itself is targeted.
func killProcessGroup(pid int, _ syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return proc.Kill()
}
