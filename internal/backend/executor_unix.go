//go:build !windows

package backend

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes cmd the leader of a new process group so
// killProcessGroup can reach children it spawns (e.g. `go build`).
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killProcessGroup signals the process group rooted at pid.
func killProcessGroup(pid int, sig syscall.Signal) error {
	err := syscall.Kill(-pid, sig)
	if err != nil && err == syscall.ESRCH {
		return nil
	}
	return err
}
