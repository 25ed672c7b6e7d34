package backend

import "context"

// v2Dialect speaks the newer backend RPC shapes, where every result is
// wrapped under a named field ({State:...}, {Variables:...}, etc), and
// every variable-reading call additionally carries the session load
// config, per spec.md §4.4.
type v2Dialect struct {
	t *Transport
}

type v2VersionOut struct {
	APIVersion int
}

func (d *v2Dialect) getVersion(ctx context.Context) (int, string, error) {
	var out v2VersionOut
	if err := d.t.Call(ctx, "GetVersion", struct{}{}, &out); err != nil {
		return 0, "", err
	}
	return out.APIVersion, "", nil
}

type v2StateOut struct {
	State DebuggerState
}

func (d *v2Dialect) state(ctx context.Context, nonBlocking bool) (*DebuggerState, error) {
	var out v2StateOut
	if err := d.t.Call(ctx, "State", struct{ NonBlocking bool }{nonBlocking}, &out); err != nil {
		return nil, err
	}
	return &out.State, nil
}

func (d *v2Dialect) command(ctx context.Context, name string) (*DebuggerState, error) {
	var out v2StateOut
	if err := d.t.Call(ctx, "Command", struct{ Name string }{name}, &out); err != nil {
		return nil, err
	}
	return &out.State, nil
}

type v2BreakpointOut struct {
	Breakpoint Breakpoint
}

func (d *v2Dialect) createBreakpoint(ctx context.Context, bp Breakpoint, load LoadConfig) (Breakpoint, error) {
	bp.LoadArgs = &load
	bp.LoadLocals = &load
	var out v2BreakpointOut
	err := d.t.Call(ctx, "CreateBreakpoint", struct{ Breakpoint Breakpoint }{bp}, &out)
	return out.Breakpoint, err
}

func (d *v2Dialect) clearBreakpoint(ctx context.Context, id int) error {
	var out v2BreakpointOut
	return d.t.Call(ctx, "ClearBreakpoint", struct{ Id int }{id}, &out)
}

type v2BreakpointsOut struct {
	Breakpoints []Breakpoint
}

func (d *v2Dialect) listBreakpoints(ctx context.Context) ([]Breakpoint, error) {
	var out v2BreakpointsOut
	err := d.t.Call(ctx, "ListBreakpoints", struct{}{}, &out)
	return out.Breakpoints, err
}

type v2LocationsOut[T any] struct {
	Locations []T
}

func (d *v2Dialect) listGoroutines(ctx context.Context, count int) ([]Goroutine, error) {
	var out v2LocationsOut[Goroutine]
	err := d.t.Call(ctx, "ListGoroutines", struct{ Count int }{count}, &out)
	return out.Locations, err
}

func (d *v2Dialect) stacktrace(ctx context.Context, scope SymbolScope, depth int, full bool) ([]Stackframe, error) {
	var out v2LocationsOut[Stackframe]
	args := struct {
		Id     int
		Depth  int
		Full   bool
		Cfg    *LoadConfig
	}{scope.GoroutineID, depth, full, nil}
	err := d.t.Call(ctx, "Stacktrace", args, &out)
	return out.Locations, err
}

type v2VariablesOut struct {
	Variables []Variable
}

func (d *v2Dialect) listLocalVars(ctx context.Context, scope SymbolScope, load LoadConfig) ([]Variable, error) {
	var out v2VariablesOut
	args := v2ScopeLoadArgs(scope, load)
	err := d.t.Call(ctx, "ListLocalVars", args, &out)
	return out.Variables, err
}

type v2ArgsOut struct {
	Args []Variable
}

func (d *v2Dialect) listFunctionArgs(ctx context.Context, scope SymbolScope, load LoadConfig) ([]Variable, error) {
	var out v2ArgsOut
	args := v2ScopeLoadArgs(scope, load)
	err := d.t.Call(ctx, "ListFunctionArgs", args, &out)
	return out.Args, err
}

func (d *v2Dialect) listPackageVars(ctx context.Context, filter string, load LoadConfig) ([]Variable, error) {
	var out v2VariablesOut
	args := struct {
		Filter string
		Cfg    LoadConfig
	}{filter, load}
	err := d.t.Call(ctx, "ListPackageVars", args, &out)
	return out.Variables, err
}

type v2VariableOut struct {
	Variable Variable
}

func (d *v2Dialect) eval(ctx context.Context, scope SymbolScope, expr string, load LoadConfig) (Variable, error) {
	var out v2VariableOut
	args := struct {
		Scope v2Scope
		Expr  string
		Cfg   LoadConfig
	}{v2Scope{scope.GoroutineID, scope.Frame}, expr, load}
	err := d.t.Call(ctx, "Eval", args, &out)
	return out.Variable, err
}

func (d *v2Dialect) set(ctx context.Context, scope SymbolScope, symbol, value string) error {
	args := struct {
		Scope  v2Scope
		Symbol string
		Value  string
	}{v2Scope{scope.GoroutineID, scope.Frame}, symbol, value}
	var out struct{}
	return d.t.Call(ctx, "Set", args, &out)
}

func (d *v2Dialect) detach(ctx context.Context, kill bool) error {
	var out struct{}
	return d.t.Call(ctx, "Detach", struct{ Kill bool }{kill}, &out)
}

type v2Scope struct {
	GoroutineID int
	Frame       int
}

func v2ScopeLoadArgs(scope SymbolScope, load LoadConfig) struct {
	Scope v2Scope
	Cfg   LoadConfig
} {
	return struct {
		Scope v2Scope
		Cfg   LoadConfig
	}{v2Scope{scope.GoroutineID, scope.Frame}, load}
}
