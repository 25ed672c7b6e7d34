package session

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/kestrel-tools/dbgbridge/internal/backend"
	"github.com/kestrel-tools/dbgbridge/internal/config"
	"github.com/kestrel-tools/dbgbridge/internal/pathmap"
)

// Connect resolves the launch arguments into a backend.Mode, spawns or
// attaches to the backend per spec.md §4.2, builds the API-Version Shim,
// and transitions not-connected → connected-stopped, emitting Initialized.
func (s *Session) Connect(ctx context.Context, exec_ backend.Executor, randSrc *rand.Rand) error {
	mode, err := resolveMode(s.launch)
	if err != nil {
		return err
	}
	s.mode = mode
	s.isLocal = mode != backend.ModeAttachRemote
	s.isNoDebug = s.launch.NoDebug && mode == backend.ModeDebug

	s.mapper = pathmap.New(
		programRoot(s.launch),
		s.launch.RemotePath,
		pathmap.LooksLikeWindowsPath(s.launch.RemotePath),
		s.launch.GOROOT,
		filepath.SplitList(s.launch.GOPATH),
	)

	if s.isNoDebug {
		lb, err := backend.LaunchNoDebug(ctx, exec_, s.buildSpec(), func(category, text string) {
			s.emitOutput(category, text)
		})
		if err != nil {
			return err
		}
		s.backendProc = lb
		s.watchProcessExit()
		s.setState(StateConnectedStopped)
		s.emitInitialized()
		return nil
	}

	spec := s.buildSpec()
	lb, err := backend.Launch(ctx, exec_, spec, randSrc, s.log)
	if err != nil {
		return err
	}
	s.backendProc = lb
	s.artifactPath = lb.ArtifactPath
	if s.isLocal {
		s.watchProcessExit()
	}

	transport, err := backend.DialWithRetry(ctx, lb.Addr, s.log)
	if err != nil {
		lb.Stop()
		return err
	}

	api, err := backend.NewAPI(spec.APIVersion, transport, s.load)
	if err != nil {
		transport.Close()
		lb.Stop()
		return err
	}
	if err := api.CheckVersion(ctx, spec.APIVersion); err != nil {
		transport.Close()
		lb.Stop()
		return fmt.Errorf("backend reports a different API version than configured apiVersion=%d: %w", spec.APIVersion, err)
	}
	s.api = api

	s.setState(StateConnectedStopped)
	s.emitInitialized()
	return nil
}

func (s *Session) buildSpec() *backend.LaunchSpec {
	l := s.launch
	program := l.Program
	if !l.IsAttach {
		gopath := config.InferGOPATH(l.Env, filepath.Dir(program))
		program = config.RewriteProgramForGOPATH(program, gopath, len(l.PackagePathToGoModPathMap) > 0)
	}

	return &backend.LaunchSpec{
		Mode:       s.mode,
		Program:    program,
		Args:       l.Args,
		Cwd:        l.Cwd,
		Env:        config.ResolveEnv(l),
		BuildFlags: strings.Fields(l.BuildFlags),
		Host:       l.Host,
		Port:       l.Port,
		DlvPath:    l.DlvToolPath,
		Backend:    l.Backend,
		InitFile:   l.Init,
		ShowLog:    l.ShowLog,
		LogOutput:  l.LogOutput,
		APIVersion: l.APIVersion,
		ProcessID:  l.ProcessID,
		RemoteAddr: fmt.Sprintf("%s:%d", l.Host, l.Port),
	}
}

func resolveMode(l *config.Launch) (backend.Mode, error) {
	if l.IsAttach {
		if strings.EqualFold(string(l.Mode), "remote") {
			return backend.ModeAttachRemote, nil
		}
		return backend.ModeAttachLocal, nil
	}
	if l.NoDebug {
		return backend.ModeDebug, nil
	}
	switch config.WireMode(strings.ToLower(string(l.Mode))) {
	case config.WireModeTest:
		return backend.ModeTest, nil
	case config.WireModeExec:
		return backend.ModeExec, nil
	case config.WireModeRemote:
		return backend.ModeAttachRemote, nil
	default:
		return backend.ModeDebug, nil
	}
}

func programRoot(l *config.Launch) string {
	if l.Program == "" {
		return l.Cwd
	}
	if filepath.Ext(l.Program) == ".go" {
		return filepath.Dir(l.Program)
	}
	return l.Program
}

// ConfigurationDone implements spec.md §4.5's stopOnEntry branch and the
// connected-stopped → running transition for the common case.
func (s *Session) ConfigurationDone(ctx context.Context) error {
	if s.isNoDebug {
		return nil
	}
	if s.launch.StopOnEntry {
		s.resetHandles()
		s.emitStopped("entry", 1)
		return nil
	}
	return s.issueContinue(ctx)
}
