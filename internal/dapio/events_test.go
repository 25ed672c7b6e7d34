package dapio

import (
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
)

func TestNewStoppedEventAllThreadsStopped(t *testing.T) {
	t.Parallel()

	ev := NewStoppedEvent(5, "breakpoint", 7)
	assert.Equal(t, 5, ev.Seq)
	assert.Equal(t, "event", ev.Type)
	assert.Equal(t, "stopped", ev.Event.Event)
	assert.Equal(t, "breakpoint", ev.Body.Reason)
	assert.Equal(t, 7, ev.Body.ThreadId)
	assert.True(t, ev.Body.AllThreadsStopped)
}

func TestNewOutputEventCarriesCategoryAndText(t *testing.T) {
	t.Parallel()

	ev := NewOutputEvent(1, "stdout", "hello\n")
	assert.Equal(t, "stdout", ev.Body.Category)
	assert.Equal(t, "hello\n", ev.Body.Output)
}

func TestNewBreakpointEventWrapsGivenBreakpoint(t *testing.T) {
	t.Parallel()

	bp := dap.Breakpoint{Id: 3, Verified: true, Line: 42}
	ev := NewBreakpointEvent(2, "changed", bp)
	assert.Equal(t, "changed", ev.Body.Reason)
	assert.Equal(t, bp, ev.Body.Breakpoint)
}

func TestNewErrorResponseFields(t *testing.T) {
	t.Parallel()

	req := dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 9, Type: "request"}, Command: "evaluate"}
	resp := NewErrorResponse(10, req, 2009, "eval failed")

	assert.Equal(t, 10, resp.Seq)
	assert.False(t, resp.Success)
	assert.Equal(t, "evaluate", resp.Command)
	assert.Equal(t, 9, resp.RequestSeq)
	assert.Equal(t, 2009, resp.Body.Error.Id)
	assert.Equal(t, "eval failed", resp.Body.Error.Format)
}

func TestAckMirrorsRequest(t *testing.T) {
	t.Parallel()

	req := dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 4, Type: "request"}, Command: "next"}
	resp := Ack(11, req)

	assert.Equal(t, 11, resp.Seq)
	assert.True(t, resp.Success)
	assert.Equal(t, "next", resp.Command)
	assert.Equal(t, 4, resp.RequestSeq)
}
