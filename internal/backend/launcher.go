package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
)

// Mode is the tagged union over launch/attach kinds, per spec.md §9's
// "mode-dispatch as a tagged value" guidance.
type Mode string

const (
	ModeDebug        Mode = "debug"
	ModeTest         Mode = "test"
	ModeExec         Mode = "exec"
	ModeAttachLocal  Mode = "attach-local"
	ModeAttachRemote Mode = "attach-remote"
	ModeNoDebugRun   Mode = "no-debug-run"
)

// LaunchSpec is the fully-resolved input to Launch: everything the Backend
// Launcher needs, with env already merged and paths already validated by
// internal/config.
type LaunchSpec struct {
	Mode Mode

	// Program is the file or directory to debug (launch modes), or empty
	// for attach modes.
	Program string

	// Args are program arguments forwarded after "--".
	Args []string

	Cwd        string
	Env        []string
	BuildFlags []string

	// Host/Port select the backend's JSON-RPC listen address. Port 0
	// means "choose a random port in [2000, 50000)".
	Host string
	Port int

	DlvPath   string // dlvToolPath launch arg; defaults to "dlv" on PATH.
	Backend   string // --backend
	InitFile  string // --init
	ShowLog   bool
	LogOutput string

	APIVersion int

	// ProcessID is required for ModeAttachLocal.
	ProcessID int

	// RemoteAddr is required for ModeAttachRemote ("host:port").
	RemoteAddr string
}

// EffectivePort returns Port, or a uniformly random port in [2000, 50000)
// if unset, per spec.md §4.2.
func (s *LaunchSpec) EffectivePort(randSrc *rand.Rand) int {
	if s.Port != 0 {
		return s.Port
	}
	return 2000 + randSrc.Intn(48000)
}

// EffectiveHost returns Host, defaulting to 127.0.0.1.
func (s *LaunchSpec) EffectiveHost() string {
	if s.Host == "" {
		return "127.0.0.1"
	}
	return s.Host
}

// LaunchedBackend is a running (or externally-reached) backend.
type LaunchedBackend struct {
	// Addr is the JSON-RPC listen address the caller should Dial.
	Addr string

	// Pid is 0 for attach-remote, since no process is owned.
	Pid int

	// ArtifactPath is the built binary path for debug/test modes, deleted
	// on forced teardown. Empty otherwise.
	ArtifactPath string

	// Done is closed when the spawned process exits. Never closes for
	// attach-remote (no owned process).
	Done chan struct{}

	// ExitCode is valid after Done closes.
	ExitCode int

	// NoDebugCmd is set (mode=debug, noDebug=true) instead of connecting
	// to a backend at all; the caller streams its stdout/stderr directly.
	NoDebugCmd *exec.Cmd

	stopFn func()
}

// Stop terminates the owned process, if any. Safe to call multiple times.
func (b *LaunchedBackend) Stop() {
	if b.stopFn != nil {
		b.stopFn()
	}
}

// Launch starts (or, for attach-remote, prepares to connect to) the
// backend described by spec, returning once it is ready to accept the
// initial connection. See spec.md §4.2 for the per-mode argv rules and
// readiness rules.
func Launch(ctx context.Context, exec_ Executor, spec *LaunchSpec, randSrc *rand.Rand, log logr.Logger) (*LaunchedBackend, error) {
	if spec.Mode == ModeAttachRemote {
		if spec.RemoteAddr == "" {
			return nil, fmt.Errorf("backend: attach-remote requires host/port")
		}
		// Known race: the backend may reject connections issued too
		// quickly after it starts listening remotely. Wait a fixed
		// grace period before the caller dials.
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &LaunchedBackend{Addr: spec.RemoteAddr, Done: closedChan()}, nil
	}

	if spec.Mode == ModeAttachLocal && spec.ProcessID == 0 {
		return nil, fmt.Errorf("backend: attach-local requires processId")
	}

	host := spec.EffectiveHost()
	port := spec.EffectivePort(randSrc)
	addr := fmt.Sprintf("%s:%d", host, port)

	argv, artifactPath, err := buildArgv(spec, host, port)
	if err != nil {
		return nil, err
	}

	dlvPath := spec.DlvPath
	if dlvPath == "" {
		dlvPath = "dlv"
	}

	cmd := exec.CommandContext(ctx, dlvPath, argv...)
	cmd.Dir = spec.Cwd
	cmd.Env = spec.Env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("backend: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("backend: stderr pipe: %w", err)
	}

	done := make(chan struct{})
	backendResult := &LaunchedBackend{
		Addr:         addr,
		ArtifactPath: artifactPath,
		Done:         done,
	}

	pid, err := exec_.StartProcess(ctx, cmd, func(_ int, exitCode int, _ error) {
		backendResult.ExitCode = exitCode
		close(done)
	})
	if err != nil {
		return nil, fmt.Errorf("backend: start %s: %w", dlvPath, err)
	}
	backendResult.Pid = pid
	backendResult.stopFn = func() { _ = exec_.StopProcess(pid) }

	go drainStderr(stderr, log)

	if err := waitForReadiness(ctx, stdout, done); err != nil {
		backendResult.Stop()
		return nil, err
	}
	go io.Copy(io.Discard, stdout)

	return backendResult, nil
}

// LaunchNoDebug runs `go run` in place of the backend entirely, per
// spec.md §4.2's no-debug bypass.
func LaunchNoDebug(ctx context.Context, exec_ Executor, spec *LaunchSpec, onOutput func(category, text string)) (*LaunchedBackend, error) {
	goArgs := append([]string{"run"}, spec.BuildFlags...)
	goArgs = append(goArgs, spec.Program)
	goArgs = append(goArgs, spec.Args...)

	cmd := exec.CommandContext(ctx, "go", goArgs...)
	cmd.Dir = spec.Cwd
	cmd.Env = spec.Env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	result := &LaunchedBackend{Done: done, NoDebugCmd: cmd}

	pid, err := exec_.StartProcess(ctx, cmd, func(_ int, exitCode int, _ error) {
		result.ExitCode = exitCode
		close(done)
	})
	if err != nil {
		return nil, err
	}
	result.Pid = pid
	result.stopFn = func() { _ = exec_.StopProcess(pid) }

	go streamOutput(stdout, "stdout", onOutput)
	go streamOutput(stderr, "stderr", onOutput)

	return result, nil
}

func streamOutput(r io.Reader, category string, onOutput func(category, text string)) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 && onOutput != nil {
			onOutput(category, string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func drainStderr(r io.Reader, log logr.Logger) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			log.V(1).Info("backend stderr", "output", string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

// waitForReadiness blocks until the first byte is observed on stdout (the
// backend's readiness signal per spec.md §4.2), the process exits first
// (an error), or ctx is cancelled.
func waitForReadiness(ctx context.Context, stdout io.Reader, done <-chan struct{}) error {
	byteCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		n, err := stdout.Read(buf)
		if n > 0 {
			err = nil
		}
		byteCh <- err
	}()

	select {
	case err := <-byteCh:
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("backend: process exited before signaling readiness")
		}
		if err != nil {
			return fmt.Errorf("backend: waiting for readiness: %w", err)
		}
		return nil
	case <-done:
		return fmt.Errorf("backend: process exited before signaling readiness")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildArgv constructs the dlv argv for the given spec, applying the
// per-mode validation rules of spec.md §4.2. Returns the built artifact
// path when the mode produces one (debug/test).
func buildArgv(spec *LaunchSpec, host string, port int) (argv []string, artifactPath string, err error) {
	listenAddr := fmt.Sprintf("%s:%d", host, port)

	switch spec.Mode {
	case ModeDebug:
		program := spec.Program
		info, statErr := os.Stat(program)
		switch {
		case statErr == nil && info.IsDir():
			program = "."
		case statErr == nil && !info.IsDir():
			if !strings.EqualFold(filepath.Ext(program), ".go") {
				return nil, "", fmt.Errorf("backend: launch/debug program must be a directory or a .go file, got %q", program)
			}
		default:
			return nil, "", fmt.Errorf("backend: launch/debug program %q: %w", spec.Program, statErr)
		}

		artifactPath = filepath.Join(os.TempDir(), fmt.Sprintf("dbgbridge-%d", port))
		if runtimeIsWindows() {
			artifactPath += ".exe"
		}

		argv = append(argv, "debug", program,
			"--headless=true",
			"--listen="+listenAddr,
			"--accept-multiclient=false",
			fmt.Sprintf("--api-version=%d", apiVersionOrDefault(spec.APIVersion)),
			"--output="+artifactPath,
		)
		argv = appendCommonFlags(argv, spec)

	case ModeTest:
		program := spec.Program
		if program == "" {
			program = "."
		}
		artifactPath = filepath.Join(os.TempDir(), fmt.Sprintf("dbgbridge-test-%d", port))
		if runtimeIsWindows() {
			artifactPath += ".exe"
		}
		argv = append(argv, "test", program,
			"--headless=true",
			"--listen="+listenAddr,
			fmt.Sprintf("--api-version=%d", apiVersionOrDefault(spec.APIVersion)),
			"--output="+artifactPath,
		)
		argv = appendCommonFlags(argv, spec)

	case ModeExec:
		info, statErr := os.Stat(spec.Program)
		if statErr != nil {
			return nil, "", fmt.Errorf("backend: launch/exec program %q: %w", spec.Program, statErr)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("backend: launch/exec program must be a regular file, got a directory: %q", spec.Program)
		}
		argv = append(argv, "exec", spec.Program,
			"--headless=true",
			"--listen="+listenAddr,
			fmt.Sprintf("--api-version=%d", apiVersionOrDefault(spec.APIVersion)),
		)
		argv = appendCommonFlags(argv, spec)

	case ModeAttachLocal:
		argv = append(argv, "attach", strconv.Itoa(spec.ProcessID),
			"--headless=true",
			"--listen="+listenAddr,
			fmt.Sprintf("--api-version=%d", apiVersionOrDefault(spec.APIVersion)),
		)
		argv = appendCommonFlags(argv, spec)

	default:
		return nil, "", fmt.Errorf("backend: unsupported mode for spawn: %s", spec.Mode)
	}

	if len(spec.Args) > 0 && (spec.Mode == ModeDebug || spec.Mode == ModeTest || spec.Mode == ModeExec) {
		argv = append(argv, "--")
		argv = append(argv, spec.Args...)
	}

	return argv, artifactPath, nil
}

func appendCommonFlags(argv []string, spec *LaunchSpec) []string {
	if spec.Backend != "" {
		argv = append(argv, "--backend="+spec.Backend)
	}
	if spec.InitFile != "" {
		argv = append(argv, "--init="+spec.InitFile)
	}
	if spec.ShowLog {
		argv = append(argv, "--log=true")
		if spec.LogOutput != "" {
			argv = append(argv, "--log-output="+spec.LogOutput)
		}
	}
	if len(spec.BuildFlags) > 0 {
		argv = append(argv, "--build-flags="+strings.Join(spec.BuildFlags, " "))
	}
	return argv
}

func apiVersionOrDefault(v int) int {
	if v == 1 || v == 2 {
		return v
	}
	return 2
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// DialWithRetry dials the backend's JSON-RPC listener, retrying with
// exponential backoff until it succeeds or ctx is cancelled. Used for the
// tcp-connect launcher path where the spawned process needs a moment to
// bind its listener.
func DialWithRetry(ctx context.Context, addr string, log logr.Logger) (*Transport, error) {
	var transport *Transport
	op := func() error {
		t, err := Dial(ctx, addr, log)
		if err != nil {
			return err
		}
		transport = t
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("backend: connect to %s: %w", addr, err)
	}
	return transport, nil
}
