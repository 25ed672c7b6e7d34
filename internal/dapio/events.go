package dapio

import "github.com/google/go-dap"

// NewInitializedEvent builds an InitializedEvent with the given sequence number.
func NewInitializedEvent(seq int) *dap.InitializedEvent {
	return &dap.InitializedEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"},
			Event:           "initialized",
		},
	}
}

// NewStoppedEvent builds a StoppedEvent for the given reason and goroutine.
// allThreadsStopped is always true per spec: the backend stops the world.
func NewStoppedEvent(seq int, reason string, threadID int) *dap.StoppedEvent {
	return &dap.StoppedEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"},
			Event:           "stopped",
		},
		Body: dap.StoppedEventBody{
			Reason:            reason,
			ThreadId:          threadID,
			AllThreadsStopped: true,
		},
	}
}

// NewTerminatedEvent builds a TerminatedEvent.
func NewTerminatedEvent(seq int) *dap.TerminatedEvent {
	return &dap.TerminatedEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"},
			Event:           "terminated",
		},
	}
}

// NewOutputEvent builds an OutputEvent carrying raw backend stdout/stderr text.
func NewOutputEvent(seq int, category, output string) *dap.OutputEvent {
	return &dap.OutputEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"},
			Event:           "output",
		},
		Body: dap.OutputEventBody{
			Category: category,
			Output:   output,
		},
	}
}

// NewBreakpointEvent builds a BreakpointEvent for the given reason ("new",
// "changed", "removed") and breakpoint payload.
func NewBreakpointEvent(seq int, reason string, bp dap.Breakpoint) *dap.BreakpointEvent {
	return &dap.BreakpointEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"},
			Event:           "breakpoint",
		},
		Body: dap.BreakpointEventBody{
			Reason:     reason,
			Breakpoint: bp,
		},
	}
}
