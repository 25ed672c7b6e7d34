package backend

import (
	"context"
	"os/exec"
	"sync"
	"syscall"

	"github.com/go-logr/logr"
)

// ExitHandler is invoked exactly once when a process started via Executor
// exits, with its exit code (or -1 if it could not be determined) and any
// error observed reaping it.
type ExitHandler func(pid int, exitCode int, err error)

// Executor starts and stops child processes. It exists as an interface,
// grounded on the teacher's pkg/process split of executor-from-process, so
// tests can substitute a fake without spawning real binaries.
type Executor interface {
	// StartProcess starts cmd and returns its pid. onExit fires from a
	// background goroutine once the process exits; the process is killed
	// if ctx is cancelled first.
	StartProcess(ctx context.Context, cmd *exec.Cmd, onExit ExitHandler) (pid int, err error)

	// StopProcess sends a termination signal to the process group rooted
	// at pid. Best-effort: an already-exited process is not an error.
	StopProcess(pid int) error
}

// osExecutor is the real Executor, backed by os/exec and process groups so
// StopProcess reaches children the backend itself spawned (e.g. `go build`
// invoked by `dlv debug`).
type osExecutor struct {
	log logr.Logger
}

// NewOSExecutor returns the production Executor.
func NewOSExecutor(log logr.Logger) Executor {
	return &osExecutor{log: log}
}

func (e *osExecutor) StartProcess(ctx context.Context, cmd *exec.Cmd, onExit ExitHandler) (int, error) {
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid

	var once sync.Once
	finish := func(code int, err error) {
		once.Do(func() {
			if onExit != nil {
				onExit(pid, code, err)
			}
		})
	}

	go func() {
		waitErr := cmd.Wait()
		code := 0
		if cmd.ProcessState != nil {
			code = cmd.ProcessState.ExitCode()
		} else if waitErr != nil {
			code = -1
		}
		finish(code, waitErr)
	}()

	go func() {
		<-ctx.Done()
		_ = e.StopProcess(pid)
	}()

	return pid, nil
}

func (e *osExecutor) StopProcess(pid int) error {
	return killProcessGroup(pid, syscall.SIGKILL)
}
