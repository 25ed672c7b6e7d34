package session

import (
	"context"
	"os"
	"strings"
	"time"
)

const haltWatchdog = 1 * time.Second

// Disconnect implements the Disconnect Orchestrator, per spec.md §4.5 and
// §4.9. It is safe to call more than once; only the first call acts.
func (s *Session) Disconnect(ctx context.Context) {
	s.disconnectOnce.Do(func() {
		s.disconnectLocked(ctx)
	})
}

func (s *Session) disconnectLocked(ctx context.Context) {
	if !s.isLocal {
		if s.api != nil {
			_ = s.api.Detach(backendContext(ctx), false)
		}
		s.closeTransport()
		return
	}

	if s.isNoDebug {
		if s.backendProc != nil {
			s.backendProc.Stop()
		}
		return
	}

	haltCtx, cancel := context.WithTimeout(backendContext(ctx), haltWatchdog)
	defer cancel()

	errCh := make(chan error, 1)
	exitedCh := make(chan bool, 1)
	go func() {
		state, err := s.api.Command(haltCtx, "halt")
		exitedCh <- err == nil && state != nil && state.Exited
		errCh <- err
	}()

	select {
	case <-haltCtx.Done():
		s.forceCleanup()
		return
	case err := <-errCh:
		if err != nil {
			if strings.HasSuffix(err.Error(), "has exited with status 0") {
				s.finishCleanup()
				return
			}
			s.forceCleanup()
			return
		}
		if <-exitedCh {
			// The typed state already reports the target as gone.
			s.finishCleanup()
			return
		}
	}

	if err := s.api.Detach(backendContext(ctx), s.isLocal); err != nil {
		s.forceCleanup()
		return
	}
	s.finishCleanup()
}

// closeTransport stops the owned backend process, if any. It does not
// close the backend JSON-RPC connection; for attach-remote no process is
// owned, so it has no effect.
func (s *Session) closeTransport() {
	if s.backendProc != nil {
		s.backendProc.Stop()
	}
}

// finishCleanup is the graceful-path teardown: the backend already
// exited on its own, so only the artifact needs removing.
func (s *Session) finishCleanup() {
	s.removeArtifact()
}

// forceCleanup implements the watchdog-timeout and detach-failure paths:
// kill the process tree, then remove the artifact.
func (s *Session) forceCleanup() {
	if s.backendProc != nil {
		s.backendProc.Stop()
	}
	s.removeArtifact()
}

// removeArtifact is best-effort and never blocks disconnect, per
// spec.md §4.9.
func (s *Session) removeArtifact() {
	if s.artifactPath == "" {
		return
	}
	if err := os.Remove(s.artifactPath); err != nil && !os.IsNotExist(err) {
		s.log.V(1).Info("artifact cleanup failed", "path", s.artifactPath, "err", err)
	}
}
