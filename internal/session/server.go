package session

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"

	"github.com/kestrel-tools/dbgbridge/internal/backend"
	"github.com/kestrel-tools/dbgbridge/internal/config"
	"github.com/kestrel-tools/dbgbridge/internal/dapio"
)

// Server owns the DAP message loop for one client connection: it reads
// requests off a Transport, dispatches them to the (at most one) active
// Session, and writes back responses/events, per spec.md §2's overall
// data flow.
type Server struct {
	log  logr.Logger
	in   dapio.Transport
	out  dapio.Transport
	seq  *dapio.SequenceCounter
	exec backend.Executor
	rand *rand.Rand

	session *Session
}

// NewServer builds a Server around one bidirectional transport (stdio or
// a single TCP connection).
func NewServer(log logr.Logger, t dapio.Transport) *Server {
	return &Server{
		log:  log,
		in:   t,
		out:  t,
		seq:  dapio.NewSequenceCounter(),
		exec: backend.NewOSExecutor(log),
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run reads and dispatches requests until the transport closes.
func (srv *Server) Run(ctx context.Context) error {
	for {
		msg, err := srv.in.ReadMessage()
		if err != nil {
			return err
		}
		req, ok := msg.(dap.RequestMessage)
		if !ok {
			continue
		}
		srv.dispatch(ctx, req)
	}
}

func (srv *Server) send(msg dap.Message) {
	if err := srv.out.WriteMessage(msg); err != nil {
		srv.log.Error(err, "failed writing DAP message")
	}
}

func (srv *Server) nextSeq() int { return srv.seq.Next() }

func (srv *Server) dispatch(ctx context.Context, req dap.RequestMessage) {
	switch r := req.(type) {
	case *dap.InitializeRequest:
		srv.handleInitialize(r)
	case *dap.LaunchRequest:
		srv.handleLaunch(ctx, r)
	case *dap.AttachRequest:
		srv.handleAttach(ctx, r)
	case *dap.ConfigurationDoneRequest:
		srv.handleConfigurationDone(ctx, r)
	case *dap.SetBreakpointsRequest:
		srv.handleSetBreakpoints(ctx, r)
	case *dap.ThreadsRequest:
		srv.handleThreads(ctx, r)
	case *dap.StackTraceRequest:
		srv.handleStackTrace(ctx, r)
	case *dap.ScopesRequest:
		srv.handleScopes(r)
	case *dap.VariablesRequest:
		srv.handleVariables(ctx, r)
	case *dap.ContinueRequest:
		srv.handleContinue(r)
	case *dap.NextRequest:
		srv.handleNext(r)
	case *dap.StepInRequest:
		srv.handleStepIn(r)
	case *dap.StepOutRequest:
		srv.handleStepOut(r)
	case *dap.PauseRequest:
		srv.handlePause(ctx, r)
	case *dap.EvaluateRequest:
		srv.handleEvaluate(ctx, r)
	case *dap.SetVariableRequest:
		srv.handleSetVariable(ctx, r)
	case *dap.DisconnectRequest:
		srv.handleDisconnect(ctx, r)
	case *dap.TerminateRequest:
		srv.handleTerminate(ctx, r)
	default:
		srv.sendError(req, backend.ErrCodeLaunchAttach, "unsupported request")
	}
}

func (srv *Server) sendError(req dap.RequestMessage, code int, message string) {
	base := req.GetRequest()
	srv.send(dapio.NewErrorResponse(srv.nextSeq(), *base, code, message))
}

func (srv *Server) ack(req dap.RequestMessage) dap.Response {
	return dapio.Ack(srv.nextSeq(), *req.GetRequest())
}

func (srv *Server) handleInitialize(r *dap.InitializeRequest) {
	resp := &dap.InitializeResponse{
		Response: srv.ack(r),
		Body: dap.Capabilities{
			SupportsConfigurationDoneRequest: true,
			SupportsSetVariable:              true,
		},
	}
	srv.send(resp)
}

func (srv *Server) handleLaunch(ctx context.Context, r *dap.LaunchRequest) {
	var rawArgs map[string]interface{}
	if err := json.Unmarshal(r.Arguments, &rawArgs); err != nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, err.Error())
		return
	}
	launch, err := config.DecodeLaunch(rawArgs)
	if err != nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, err.Error())
		return
	}

	srv.session = New(srv.log, srv.out, srv.seq, launch)
	if err := srv.session.Connect(ctx, srv.exec, srv.rand); err != nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, err.Error())
		srv.session = nil
		return
	}
	srv.send(&dap.LaunchResponse{Response: srv.ack(r)})
}

func (srv *Server) handleAttach(ctx context.Context, r *dap.AttachRequest) {
	raw, err := decodeArguments(r.Arguments)
	if err != nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, err.Error())
		return
	}
	launch, err := config.DecodeAttach(raw)
	if err != nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, err.Error())
		return
	}

	srv.session = New(srv.log, srv.out, srv.seq, launch)
	if err := srv.session.Connect(ctx, srv.exec, srv.rand); err != nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, err.Error())
		srv.session = nil
		return
	}
	srv.send(&dap.AttachResponse{Response: srv.ack(r)})
}

func decodeArguments(raw json.RawMessage) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (srv *Server) handleConfigurationDone(ctx context.Context, r *dap.ConfigurationDoneRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, "no active session")
		return
	}
	if err := srv.session.ConfigurationDone(ctx); err != nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, err.Error())
		return
	}
	srv.send(&dap.ConfigurationDoneResponse{Response: srv.ack(r)})
}

func (srv *Server) handleSetBreakpoints(ctx context.Context, r *dap.SetBreakpointsRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodeSetBreakpointsHalt, "no active session")
		return
	}
	requested := make([]RequestedBreakpoint, len(r.Arguments.Breakpoints))
	for i, b := range r.Arguments.Breakpoints {
		requested[i] = RequestedBreakpoint{Line: b.Line, Cond: b.Condition}
	}
	results, err := srv.session.SetBreakpoints(ctx, r.Arguments.Source.Path, requested)
	if err != nil {
		srv.sendError(r, backend.ErrCodeSetBreakpointsHalt, err.Error())
		return
	}
	body := dap.SetBreakpointsResponseBody{Breakpoints: make([]dap.Breakpoint, len(results))}
	for i, res := range results {
		body.Breakpoints[i] = dap.Breakpoint{Verified: res.Verified, Line: res.Line}
	}
	srv.send(&dap.SetBreakpointsResponse{Response: srv.ack(r), Body: body})
}

func (srv *Server) handleThreads(ctx context.Context, r *dap.ThreadsRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodeThreads, "no active session")
		return
	}
	threads, err := srv.session.Threads(ctx)
	if err != nil {
		srv.sendError(r, backend.ErrCodeThreads, err.Error())
		return
	}
	body := dap.ThreadsResponseBody{Threads: make([]dap.Thread, len(threads))}
	for i, t := range threads {
		body.Threads[i] = dap.Thread{Id: t.ID, Name: t.Name}
	}
	srv.send(&dap.ThreadsResponse{Response: srv.ack(r), Body: body})
}

func (srv *Server) handleStackTrace(ctx context.Context, r *dap.StackTraceRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodeStackTrace, "no active session")
		return
	}
	frames, total, err := srv.session.StackTrace(ctx, r.Arguments.ThreadId, r.Arguments.StartFrame, r.Arguments.Levels)
	if err != nil {
		srv.sendError(r, backend.ErrCodeStackTrace, err.Error())
		return
	}
	body := dap.StackTraceResponseBody{TotalFrames: total, StackFrames: make([]dap.StackFrame, len(frames))}
	for i, f := range frames {
		body.StackFrames[i] = dap.StackFrame{
			Id:     f.ID,
			Name:   f.Name,
			Line:   f.Line,
			Column: f.Column,
			Source: &dap.Source{Path: f.Path},
		}
	}
	srv.send(&dap.StackTraceResponse{Response: srv.ack(r), Body: body})
}

func (srv *Server) handleScopes(r *dap.ScopesRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodeScopesLocals, "no active session")
		return
	}
	scopes, err := srv.session.Scopes(r.Arguments.FrameId)
	if err != nil {
		srv.sendError(r, backend.ErrCodeScopesLocals, err.Error())
		return
	}
	body := dap.ScopesResponseBody{Scopes: make([]dap.Scope, len(scopes))}
	for i, sc := range scopes {
		body.Scopes[i] = dap.Scope{Name: sc.Name, VariablesReference: sc.VariablesReference}
	}
	srv.send(&dap.ScopesResponse{Response: srv.ack(r), Body: body})
}

func (srv *Server) handleVariables(ctx context.Context, r *dap.VariablesRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodeScopesLocals, "no active session")
		return
	}
	vars, err := srv.session.Variables(ctx, r.Arguments.VariablesReference)
	if err != nil {
		srv.sendError(r, backend.ErrCodeScopesLocals, err.Error())
		return
	}
	body := dap.VariablesResponseBody{Variables: make([]dap.Variable, len(vars))}
	for i, v := range vars {
		body.Variables[i] = dap.Variable{Name: v.Name, Value: v.Value, Type: v.Type, VariablesReference: v.VariablesReference}
	}
	srv.send(&dap.VariablesResponse{Response: srv.ack(r), Body: body})
}

func (srv *Server) handleContinue(r *dap.ContinueRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, "no active session")
		return
	}
	srv.send(&dap.ContinueResponse{Response: srv.ack(r)})
	go func() { _ = srv.session.issueContinue(context.Background()) }()
}

func (srv *Server) handleNext(r *dap.NextRequest) {
	if !srv.stepPreflight(r) {
		return
	}
	srv.send(&dap.NextResponse{Response: srv.ack(r)})
	go func() { _ = srv.session.Next(context.Background()) }()
}

func (srv *Server) handleStepIn(r *dap.StepInRequest) {
	if !srv.stepPreflight(r) {
		return
	}
	srv.send(&dap.StepInResponse{Response: srv.ack(r)})
	go func() { _ = srv.session.StepIn(context.Background()) }()
}

func (srv *Server) handleStepOut(r *dap.StepOutRequest) {
	if !srv.stepPreflight(r) {
		return
	}
	srv.send(&dap.StepOutResponse{Response: srv.ack(r)})
	go func() { _ = srv.session.StepOut(context.Background()) }()
}

func (srv *Server) stepPreflight(r dap.RequestMessage) bool {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodeLaunchAttach, "no active session")
		return false
	}
	return true
}

func (srv *Server) handlePause(ctx context.Context, r *dap.PauseRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodePauseSetVariable, "no active session")
		return
	}
	if err := srv.session.Pause(ctx); err != nil {
		srv.sendError(r, backend.ErrCodePauseSetVariable, err.Error())
		return
	}
	srv.send(&dap.PauseResponse{Response: srv.ack(r)})
}

func (srv *Server) handleEvaluate(ctx context.Context, r *dap.EvaluateRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodeEvaluate, "no active session")
		return
	}
	v, err := srv.session.Evaluate(ctx, r.Arguments.FrameId, r.Arguments.Expression)
	if err != nil {
		srv.sendError(r, backend.ErrCodeEvaluate, err.Error())
		return
	}
	body := dap.EvaluateResponseBody{Result: v.Value, Type: v.Type, VariablesReference: v.VariablesReference}
	srv.send(&dap.EvaluateResponse{Response: srv.ack(r), Body: body})
}

func (srv *Server) handleSetVariable(ctx context.Context, r *dap.SetVariableRequest) {
	if srv.session == nil {
		srv.sendError(r, backend.ErrCodePauseSetVariable, "no active session")
		return
	}
	v, err := srv.session.SetVariable(ctx, r.Arguments.VariablesReference, r.Arguments.Name, r.Arguments.Value)
	if err != nil {
		srv.sendError(r, backend.ErrCodePauseSetVariable, err.Error())
		return
	}
	body := dap.SetVariableResponseBody{Value: v.Value, Type: v.Type, VariablesReference: v.VariablesReference}
	srv.send(&dap.SetVariableResponse{Response: srv.ack(r), Body: body})
}

func (srv *Server) handleDisconnect(ctx context.Context, r *dap.DisconnectRequest) {
	if srv.session != nil {
		srv.session.Disconnect(ctx)
	}
	srv.send(&dap.DisconnectResponse{Response: srv.ack(r)})
}

// handleTerminate degrades to the same Disconnect Orchestrator path as
// disconnect: this bridge does not distinguish a polite "stop debugging"
// request from a disconnect once a session is running.
func (srv *Server) handleTerminate(ctx context.Context, r *dap.TerminateRequest) {
	if srv.session != nil {
		srv.session.Disconnect(ctx)
	}
	srv.send(&dap.TerminateResponse{Response: srv.ack(r)})
}
