// Package session implements the Session Controller, Breakpoint Manager,
// Variable Renderer, Event Projector and Disconnect Orchestrator: the
// stateful heart of the bridge, sitting between the DAP transport and the
// backend API.
package session

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/kestrel-tools/dbgbridge/internal/backend"
	"github.com/kestrel-tools/dbgbridge/internal/config"
	"github.com/kestrel-tools/dbgbridge/internal/dapio"
	"github.com/kestrel-tools/dbgbridge/internal/pathmap"
)

// RunState is the backend-run-state the Session Controller tracks, per
// spec.md §4.5.
type RunState int

const (
	StateNotConnected RunState = iota
	StateConnectedStopped
	StateRunning
	StateExited
)

func (s RunState) String() string {
	switch s {
	case StateNotConnected:
		return "not-connected"
	case StateConnectedStopped:
		return "connected-stopped"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// frameHandleValue is what a Stack-Frame Handle resolves to.
type frameHandleValue struct {
	GoroutineID int
	FrameIndex  int
}

// Session is one DAP launch/attach's worth of state, per spec.md §3.
type Session struct {
	mu sync.Mutex

	id  string
	log logr.Logger
	out dapio.Transport
	seq *dapio.SequenceCounter

	launch *config.Launch
	mode   backend.Mode
	api    *backend.API
	mapper *pathmap.Mapper

	load            backend.LoadConfig
	stackTraceDepth int
	showGlobals     bool

	state             RunState
	continueInFlight  bool
	skipStopEventOnce bool
	epoch             int

	backendProc  *backend.LaunchedBackend
	artifactPath string
	isLocal      bool
	isNoDebug    bool

	frames *handleArena[frameHandleValue]
	vars   *handleArena[variableNode]

	breakpoints map[string][]trackedBreakpoint

	pkgCache map[string]pkgInfo

	lastGoroutineID int
	lastStopDir     string

	disconnectOnce sync.Once
}

type pkgInfo struct {
	name       string
	importPath string
}

// trackedBreakpoint is one Breakpoint Manager record for a source file,
// per spec.md §3 "Breakpoint Set".
type trackedBreakpoint struct {
	id            int
	remoteFile    string
	line          int
	cond          string
	requestedLine int
	verified      bool
}

// New constructs a fresh, not-yet-connected Session. Every session gets a
// random id, tagged onto its logger, so a bridge that outlives more than
// one launch/attach (e.g. a client that restarts the debuggee) still
// produces log lines attributable to a single session.
func New(log logr.Logger, out dapio.Transport, seq *dapio.SequenceCounter, launch *config.Launch) *Session {
	load := backend.DefaultLoadConfig()
	if launch.DlvLoadConfig != nil {
		load = *launch.DlvLoadConfig
	}

	id := uuid.NewString()
	log = log.WithValues("sessionID", id)

	return &Session{
		id:              id,
		log:             log,
		out:             out,
		seq:             seq,
		launch:          launch,
		load:            load,
		stackTraceDepth: launch.StackTraceDepth,
		showGlobals:     launch.ShowGlobalVariables,
		state:           StateNotConnected,
		frames:          newHandleArena[frameHandleValue](),
		vars:            newHandleArena[variableNode](),
		breakpoints:     map[string][]trackedBreakpoint{},
		pkgCache:        map[string]pkgInfo{},
	}
}

func (s *Session) sendMessage(msg dap.Message) {
	if err := s.out.WriteMessage(msg); err != nil {
		s.log.Error(err, "failed writing DAP message")
	}
}

func (s *Session) nextSeq() int { return s.seq.Next() }

// State returns the current run-state under lock.
func (s *Session) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// resetHandles invalidates both handle tables. Must be called before any
// Stopped event is sent, per spec.md §4.8.
func (s *Session) resetHandles() {
	s.frames.Reset()
	s.vars.Reset()
}

// backendContext is the context used for backend RPCs issued on behalf of
// a session; individual RPCs have no timeout per spec.md §5, so this is
// simply tied to the session's own lifetime via ctx from the caller.
func backendContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
