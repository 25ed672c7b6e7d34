package backend

import "context"

// SymbolScope identifies a goroutine+frame pair for scoped variable RPCs
// (locals, args, eval, set).
type SymbolScope struct {
	GoroutineID int
	Frame       int
}

// API hides the v1/v2 backend RPC-shape differences behind one interface,
// per spec.md §4.4. Session code must reference this interface only, never
// the wire-level Transport directly, so protocol-version branching lives
// in exactly one place (spec.md §9's "strategy object" guidance).
type API struct {
	dialect dialect
	load    LoadConfig
}

// dialect is the per-version strategy implementation.
type dialect interface {
	getVersion(ctx context.Context) (int, string, error)
	state(ctx context.Context, nonBlocking bool) (*DebuggerState, error)
	command(ctx context.Context, name string) (*DebuggerState, error)
	createBreakpoint(ctx context.Context, bp Breakpoint, load LoadConfig) (Breakpoint, error)
	clearBreakpoint(ctx context.Context, id int) error
	listBreakpoints(ctx context.Context) ([]Breakpoint, error)
	listGoroutines(ctx context.Context, count int) ([]Goroutine, error)
	stacktrace(ctx context.Context, scope SymbolScope, depth int, full bool) ([]Stackframe, error)
	listLocalVars(ctx context.Context, scope SymbolScope, load LoadConfig) ([]Variable, error)
	listFunctionArgs(ctx context.Context, scope SymbolScope, load LoadConfig) ([]Variable, error)
	listPackageVars(ctx context.Context, filter string, load LoadConfig) ([]Variable, error)
	eval(ctx context.Context, scope SymbolScope, expr string, load LoadConfig) (Variable, error)
	set(ctx context.Context, scope SymbolScope, symbol, value string) error
	detach(ctx context.Context, kill bool) error
}

// NewAPI builds the strategy object for the given backend API version
// (1 or 2), wrapping transport for RPC dispatch.
func NewAPI(version int, transport *Transport, load LoadConfig) (*API, error) {
	var d dialect
	switch version {
	case 1:
		d = &v1Dialect{t: transport}
	case 2:
		d = &v2Dialect{t: transport}
	default:
		return nil, ErrVersionMismatch
	}
	return &API{dialect: d, load: load}, nil
}

// CheckVersion issues GetVersion and fails if the backend's reported
// version does not match the client-selected dialect, per spec.md §4.4.
func (a *API) CheckVersion(ctx context.Context, want int) error {
	got, _, err := a.dialect.getVersion(ctx)
	if err != nil {
		return err
	}
	if got != want {
		return ErrVersionMismatch
	}
	return nil
}

func (a *API) State(ctx context.Context, nonBlocking bool) (*DebuggerState, error) {
	return a.dialect.state(ctx, nonBlocking)
}

func (a *API) Command(ctx context.Context, name string) (*DebuggerState, error) {
	return a.dialect.command(ctx, name)
}

func (a *API) CreateBreakpoint(ctx context.Context, bp Breakpoint) (Breakpoint, error) {
	return a.dialect.createBreakpoint(ctx, bp, a.load)
}

func (a *API) ClearBreakpoint(ctx context.Context, id int) error {
	return a.dialect.clearBreakpoint(ctx, id)
}

func (a *API) ListBreakpoints(ctx context.Context) ([]Breakpoint, error) {
	return a.dialect.listBreakpoints(ctx)
}

func (a *API) ListGoroutines(ctx context.Context, count int) ([]Goroutine, error) {
	return a.dialect.listGoroutines(ctx, count)
}

func (a *API) Stacktrace(ctx context.Context, scope SymbolScope, depth int, full bool) ([]Stackframe, error) {
	return a.dialect.stacktrace(ctx, scope, depth, full)
}

func (a *API) ListLocalVars(ctx context.Context, scope SymbolScope) ([]Variable, error) {
	return a.dialect.listLocalVars(ctx, scope, a.load)
}

func (a *API) ListFunctionArgs(ctx context.Context, scope SymbolScope) ([]Variable, error) {
	return a.dialect.listFunctionArgs(ctx, scope, a.load)
}

func (a *API) ListPackageVars(ctx context.Context, filter string) ([]Variable, error) {
	return a.dialect.listPackageVars(ctx, filter, a.load)
}

func (a *API) Eval(ctx context.Context, scope SymbolScope, expr string) (Variable, error) {
	return a.dialect.eval(ctx, scope, expr, a.load)
}

func (a *API) Set(ctx context.Context, scope SymbolScope, symbol, value string) error {
	return a.dialect.set(ctx, scope, symbol, value)
}

func (a *API) Detach(ctx context.Context, kill bool) error {
	return a.dialect.detach(ctx, kill)
}
