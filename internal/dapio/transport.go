// Package dapio provides DAP message I/O with the client editor: framing,
// sequence-number bookkeeping, and small helpers for constructing
// responses and events.
package dapio

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/go-dap"
)

// Transport reads and writes DAP protocol messages. Implementations must
// be safe for one ReadMessage caller running alongside any number of
// concurrent WriteMessage callers (writes are serialized internally); two
// concurrent ReadMessage calls are not supported.
type Transport interface {
	ReadMessage() (dap.Message, error)
	WriteMessage(msg dap.Message) error
	Close() error
}

// stdTransport implements Transport over a pair of ReadCloser/WriteCloser
// streams (stdin/stdout when talking to an editor that spawned us).
type stdTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
	in     io.Closer
	out    io.Closer

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// NewStdioTransport builds a Transport over the given input/output streams.
func NewStdioTransport(in io.ReadCloser, out io.WriteCloser) Transport {
	return &stdTransport{
		reader: bufio.NewReader(in),
		writer: bufio.NewWriter(out),
		in:     in,
		out:    out,
	}
}

func (t *stdTransport) ReadMessage() (dap.Message, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("dapio: transport closed")
	}
	t.mu.Unlock()

	msg, err := dap.ReadProtocolMessage(t.reader)
	if err != nil {
		return nil, fmt.Errorf("dapio: read message: %w", err)
	}
	return msg, nil
}

func (t *stdTransport) WriteMessage(msg dap.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("dapio: transport closed")
	}
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := dap.WriteProtocolMessage(t.writer, msg); err != nil {
		return fmt.Errorf("dapio: write message: %w", err)
	}
	return t.writer.Flush()
}

func (t *stdTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if err := t.in.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.out.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// netTransport implements Transport over a net.Conn (used when the editor
// connects via --listen host:port instead of stdio).
type netTransport struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// NewConnTransport builds a Transport over an already-established connection.
func NewConnTransport(conn net.Conn) Transport {
	return &netTransport{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}
}

func (t *netTransport) ReadMessage() (dap.Message, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("dapio: transport closed")
	}
	t.mu.Unlock()

	msg, err := dap.ReadProtocolMessage(t.reader)
	if err != nil {
		return nil, fmt.Errorf("dapio: read message: %w", err)
	}
	return msg, nil
}

func (t *netTransport) WriteMessage(msg dap.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("dapio: transport closed")
	}
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := dap.WriteProtocolMessage(t.writer, msg); err != nil {
		return fmt.Errorf("dapio: write message: %w", err)
	}
	return t.writer.Flush()
}

func (t *netTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
