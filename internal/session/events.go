package session

import "github.com/kestrel-tools/dbgbridge/internal/dapio"

// setState records a run-state transition under lock, per spec.md §4.5.
func (s *Session) setState(st RunState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) emitInitialized() {
	s.sendMessage(dapio.NewInitializedEvent(s.nextSeq()))
}

// emitStopped resets both handle tables before sending the event, per
// spec.md §4.8's ordering guarantee.
func (s *Session) emitStopped(reason string, goroutineID int) {
	s.resetHandles()
	s.mu.Lock()
	s.lastGoroutineID = goroutineID
	s.mu.Unlock()
	s.sendMessage(dapio.NewStoppedEvent(s.nextSeq(), reason, goroutineID))
}

func (s *Session) emitTerminated() {
	s.setState(StateExited)
	s.sendMessage(dapio.NewTerminatedEvent(s.nextSeq()))
}

func (s *Session) emitOutput(category, text string) {
	s.sendMessage(dapio.NewOutputEvent(s.nextSeq(), category, text))
}

// watchProcessExit emits Terminated when the backend child process ends,
// per spec.md §4.2 "a non-zero exit code of the spawned backend →
// Terminated event to the client" and §4.8.
func (s *Session) watchProcessExit() {
	if s.backendProc == nil {
		return
	}
	done := s.backendProc.Done
	go func() {
		<-done
		if s.State() == StateExited {
			return
		}
		s.emitTerminated()
	}()
}
