package session

import (
	"context"
	"strconv"

	"github.com/kestrel-tools/dbgbridge/internal/backend"
)

// issueContinue implements the connected-stopped → running transition,
// per spec.md §4.5. The backend Command RPC blocks until the target
// next stops; the continue-epoch guards against a stale completion
// unmasking a newer continue (spec.md §8 property 5).
func (s *Session) issueContinue(ctx context.Context) error {
	return s.issueRunningCommand(ctx, "continue", "breakpoint")
}

func (s *Session) Next(ctx context.Context) error    { return s.issueRunningCommand(ctx, "next", "step") }
func (s *Session) StepIn(ctx context.Context) error  { return s.issueRunningCommand(ctx, "step", "step") }
func (s *Session) StepOut(ctx context.Context) error { return s.issueRunningCommand(ctx, "stepOut", "step") }

// Pause issues Command{halt} without going through the running-in-flight
// bookkeeping; the caller (a pause DAP request) expects its own Stopped
// event with reason "pause".
func (s *Session) Pause(ctx context.Context) error {
	state, err := s.api.Command(backendContext(ctx), "halt")
	if err != nil {
		return err
	}
	s.reactToState(state, "pause")
	return nil
}

// issueRunningCommand drives the running → connected-stopped transition
// for continue/next/step* as a single blocking RPC issued on the
// session's behalf. Because the backend Command RPC itself blocks until
// the target stops, running the whole thing synchronously inside the
// calling goroutine already gives us "the completion callback observes
// its own epoch". Two invocations can overlap (e.g. the halt-edit-resume
// dance issues a fresh continue while the halted one is completing);
// only the one holding the latest epoch clears continueInFlight and
// drives the visible transition.
func (s *Session) issueRunningCommand(ctx context.Context, commandName, reason string) error {
	s.mu.Lock()
	s.continueInFlight = true
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	s.setState(StateRunning)

	state, err := s.api.Command(backendContext(ctx), commandName)

	s.mu.Lock()
	isCurrent := epoch == s.epoch
	if isCurrent {
		s.continueInFlight = false
	}
	skip := s.skipStopEventOnce
	if skip {
		s.skipStopEventOnce = false
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if !isCurrent {
		// A newer continue has already superseded this one; its own
		// completion will drive the visible transition.
		return nil
	}
	if skip {
		// This stop was synthesized by the halt side of the
		// breakpoint-edit-during-run dance; the caller already issued a
		// fresh continue and the client must not see this Stopped event.
		s.setState(StateRunning)
		return nil
	}
	s.reactToState(state, reason)
	return nil
}

// reactToState inspects a backend DebuggerState snapshot and emits the
// appropriate event, per spec.md §4.5's "running → connected-stopped" row
// and §4.8's Terminated conditions.
func (s *Session) reactToState(state *backend.DebuggerState, reason string) {
	if state == nil {
		return
	}
	if state.Exited {
		s.emitTerminated()
		return
	}
	s.setState(StateConnectedStopped)
	gid := s.currentGoroutineID(state)
	s.emitStopped(reason, gid)
}

func (s *Session) currentGoroutineID(state *backend.DebuggerState) int {
	if state.CurrentGoroutine != nil {
		return state.CurrentGoroutine.ID
	}
	return 1
}

// Threads answers a threads request. While a continue is in-flight the
// backend's own Threads-equivalent (ListGoroutines) would block, so the
// controller synthesizes a single dummy thread instead (spec.md §8
// property 6). The same dummy is returned when the backend reports no
// goroutines. Id 1 is kept for client compatibility; the backend does not
// guarantee that goroutine 1 is the main goroutine.
func (s *Session) Threads(ctx context.Context) ([]dapThread, error) {
	s.mu.Lock()
	inFlight := s.continueInFlight
	s.mu.Unlock()

	if inFlight {
		return []dapThread{{ID: 1, Name: "Dummy"}}, nil
	}

	goroutines, err := s.api.ListGoroutines(backendContext(ctx), 0)
	if err != nil {
		return nil, err
	}
	if len(goroutines) == 0 {
		return []dapThread{{ID: 1, Name: "Dummy"}}, nil
	}
	threads := make([]dapThread, len(goroutines))
	for i, g := range goroutines {
		threads[i] = dapThread{ID: g.ID, Name: goroutineName(g.ID)}
	}
	return threads, nil
}

type dapThread struct {
	ID   int
	Name string
}

func goroutineName(id int) string {
	return "Goroutine " + strconv.Itoa(id)
}
