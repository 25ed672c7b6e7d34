package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"

	"github.com/go-logr/logr"
)

// Transport is the single primitive the rest of the bridge uses to talk to
// the backend: one JSON-RPC call, named "RPCServer.<method>", dispatched on
// the shared connection. The transport may pipeline several outstanding
// calls on the wire; it preserves each call's request-id<->response
// correspondence via the underlying net/rpc client's own pending table.
type Transport struct {
	client *rpc.Client
	conn   net.Conn
	log    logr.Logger

	mu     sync.Mutex
	closed bool
}

// Dial connects to the backend's JSON-RPC listener at addr and returns a
// ready-to-use Transport. The backend speaks Delve's net/rpc/jsonrpc
// dialect: newline-delimited JSON, method names of the form
// "RPCServer.<Method>".
func Dial(ctx context.Context, addr string, log logr.Logger) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("backend: dial %s: %w", addr, err)
	}
	return NewTransport(conn, log), nil
}

// NewTransport wraps an already-established connection.
func NewTransport(conn net.Conn, log logr.Logger) *Transport {
	return &Transport{
		client: jsonrpc.NewClient(conn),
		conn:   conn,
		log:    log,
	}
}

// Call issues one JSON-RPC invocation of "RPCServer.<method>" and decodes
// the result into reply. It blocks until the response arrives or ctx is
// cancelled; on cancellation the call remains outstanding on the wire (the
// backend may still complete it) but the caller is released immediately.
func (t *Transport) Call(ctx context.Context, method string, args, reply interface{}) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrBackendClosed
	}
	t.mu.Unlock()

	fullMethod := "RPCServer." + method
	call := t.client.Go(fullMethod, args, reply, make(chan *rpc.Call, 1))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-call.Done:
		if errors.Is(res.Error, rpc.ErrShutdown) || errors.Is(res.Error, io.ErrUnexpectedEOF) || errors.Is(res.Error, net.ErrClosed) {
			return ErrBackendClosed
		}
		if res.Error != nil {
			return fmt.Errorf("backend: %s: %w", method, res.Error)
		}
		return nil
	}
}

// Close closes the underlying connection. Any calls still awaiting a
// response return ErrBackendClosed once net/rpc notices the connection
// dropped.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.client.Close()
}
