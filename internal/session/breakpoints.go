package session

import (
	"context"
	"strings"

	"github.com/google/go-dap"

	"github.com/kestrel-tools/dbgbridge/internal/backend"
	"github.com/kestrel-tools/dbgbridge/internal/dapio"
)

// RequestedBreakpoint is one entry of a setBreakpoints request, already
// reduced to the fields the manager needs.
type RequestedBreakpoint struct {
	Line int
	Cond string
}

// VerifiedBreakpoint is what the client sees back, per spec.md §4.6
// "Result to the client".
type VerifiedBreakpoint struct {
	Verified bool
	Line     int
}

// SetBreakpoints implements the Breakpoint Manager, per spec.md §4.6.
// sourcePath is the local, client-visible path; it is translated to the
// remote path space before any backend RPC.
func (s *Session) SetBreakpoints(ctx context.Context, sourcePath string, requested []RequestedBreakpoint) ([]VerifiedBreakpoint, error) {
	wasRunning := s.State() == StateRunning
	if wasRunning {
		s.mu.Lock()
		s.skipStopEventOnce = true
		s.mu.Unlock()
		if _, err := s.api.Command(backendContext(ctx), "halt"); err != nil {
			return nil, err
		}
	}

	results, err := s.reconcileFile(ctx, sourcePath, requested)

	if wasRunning {
		go func() { _ = s.issueContinue(context.Background()) }()
	}

	return results, err
}

func (s *Session) reconcileFile(ctx context.Context, sourcePath string, requested []RequestedBreakpoint) ([]VerifiedBreakpoint, error) {
	remoteFile := s.mapper.ToRemote(sourcePath)

	s.mu.Lock()
	prior := s.breakpoints[sourcePath]
	s.mu.Unlock()

	for _, bp := range prior {
		if err := s.api.ClearBreakpoint(backendContext(ctx), bp.id); err != nil {
			s.log.V(1).Info("clearing stale breakpoint failed", "id", bp.id, "err", err)
		}
	}

	tracked := make([]trackedBreakpoint, 0, len(requested))
	results := make([]VerifiedBreakpoint, 0, len(requested))

	for _, r := range requested {
		bp, verified, err := s.createOneBreakpoint(ctx, remoteFile, r)
		if err != nil {
			return nil, err
		}
		tb := trackedBreakpoint{
			id:            bp.ID,
			remoteFile:    remoteFile,
			line:          bp.Line,
			cond:          r.Cond,
			requestedLine: r.Line,
			verified:      verified,
		}
		tracked = append(tracked, tb)
		line := r.Line
		if verified {
			line = bp.Line
		}
		results = append(results, VerifiedBreakpoint{Verified: verified, Line: line})
	}

	s.mu.Lock()
	s.breakpoints[sourcePath] = tracked
	s.mu.Unlock()

	return results, nil
}

// createOneBreakpoint creates a single breakpoint, recovering from an
// "already exists" error by adopting the existing record via
// ListBreakpoints, per spec.md §4.6.
func (s *Session) createOneBreakpoint(ctx context.Context, remoteFile string, r RequestedBreakpoint) (backend.Breakpoint, bool, error) {
	req := backend.Breakpoint{File: remoteFile, Line: r.Line, Cond: r.Cond}
	bp, err := s.api.CreateBreakpoint(backendContext(ctx), req)
	if err == nil {
		s.notifyBreakpointVerified(bp)
		return bp, true, nil
	}
	if !strings.Contains(err.Error(), "already exists") {
		return backend.Breakpoint{}, false, err
	}

	existing, listErr := s.api.ListBreakpoints(backendContext(ctx))
	if listErr != nil {
		return backend.Breakpoint{}, false, nil
	}
	for _, e := range existing {
		if e.File == remoteFile && e.Line == r.Line {
			s.notifyBreakpointVerified(e)
			return e, true, nil
		}
	}
	return backend.Breakpoint{}, false, nil
}

// notifyBreakpointVerified emits a BreakpointEvent for a breakpoint whose
// verified state was just established or reconfirmed via reconciliation,
// independent of the direct setBreakpoints response — the supplemented
// behavior described for reconciliation-driven breakpoint notifications.
func (s *Session) notifyBreakpointVerified(bp backend.Breakpoint) {
	local := s.mapper.ToLocal(bp.File)
	s.sendMessage(dapio.NewBreakpointEvent(s.nextSeq(), "changed", dap.Breakpoint{
		Id:       bp.ID,
		Verified: true,
		Line:     bp.Line,
		Source:   &dap.Source{Path: local},
	}))
}
