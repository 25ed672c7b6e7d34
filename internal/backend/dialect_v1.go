package backend

import "context"

// v1Dialect speaks the original backend RPC shapes: every result is the
// raw object, with no wrapper struct, per spec.md §4.4.
type v1Dialect struct {
	t *Transport
}

type v1VersionOut struct {
	APIVersion int
}

func (d *v1Dialect) getVersion(ctx context.Context) (int, string, error) {
	var out v1VersionOut
	if err := d.t.Call(ctx, "GetVersion", struct{}{}, &out); err != nil {
		return 0, "", err
	}
	return out.APIVersion, "", nil
}

func (d *v1Dialect) state(ctx context.Context, nonBlocking bool) (*DebuggerState, error) {
	var out DebuggerState
	if err := d.t.Call(ctx, "State", struct{ NonBlocking bool }{nonBlocking}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *v1Dialect) command(ctx context.Context, name string) (*DebuggerState, error) {
	var out DebuggerState
	if err := d.t.Call(ctx, "Command", struct{ Name string }{name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *v1Dialect) createBreakpoint(ctx context.Context, bp Breakpoint, load LoadConfig) (Breakpoint, error) {
	bp.LoadArgs, bp.LoadLocals = nil, nil // v1 does not accept load configs on create.
	var out Breakpoint
	err := d.t.Call(ctx, "CreateBreakpoint", struct{ Breakpoint Breakpoint }{bp}, &out)
	return out, err
}

func (d *v1Dialect) clearBreakpoint(ctx context.Context, id int) error {
	var out Breakpoint
	return d.t.Call(ctx, "ClearBreakpoint", struct{ Id int }{id}, &out)
}

func (d *v1Dialect) listBreakpoints(ctx context.Context) ([]Breakpoint, error) {
	var out []Breakpoint
	err := d.t.Call(ctx, "ListBreakpoints", struct{}{}, &out)
	return out, err
}

func (d *v1Dialect) listGoroutines(ctx context.Context, count int) ([]Goroutine, error) {
	var out []Goroutine
	err := d.t.Call(ctx, "ListGoroutines", struct{ Count int }{count}, &out)
	return out, err
}

func (d *v1Dialect) stacktrace(ctx context.Context, scope SymbolScope, depth int, _ bool) ([]Stackframe, error) {
	var out []Stackframe
	args := struct {
		Id    int
		Depth int
	}{scope.GoroutineID, depth}
	err := d.t.Call(ctx, "StacktraceGoroutine", args, &out)
	return out, err
}

func (d *v1Dialect) listLocalVars(ctx context.Context, scope SymbolScope, _ LoadConfig) ([]Variable, error) {
	var out []Variable
	err := d.t.Call(ctx, "ListLocalVars", v1ScopeArgs(scope), &out)
	return out, err
}

func (d *v1Dialect) listFunctionArgs(ctx context.Context, scope SymbolScope, _ LoadConfig) ([]Variable, error) {
	var out []Variable
	err := d.t.Call(ctx, "ListFunctionArgs", v1ScopeArgs(scope), &out)
	return out, err
}

func (d *v1Dialect) listPackageVars(ctx context.Context, filter string, _ LoadConfig) ([]Variable, error) {
	var out []Variable
	err := d.t.Call(ctx, "ListPackageVars", struct{ Filter string }{filter}, &out)
	return out, err
}

func (d *v1Dialect) eval(ctx context.Context, scope SymbolScope, expr string, _ LoadConfig) (Variable, error) {
	var out Variable
	args := struct {
		Scope  v1Scope
		Symbol string
	}{v1Scope{scope.GoroutineID, scope.Frame}, expr}
	err := d.t.Call(ctx, "EvalSymbol", args, &out)
	return out, err
}

func (d *v1Dialect) set(ctx context.Context, scope SymbolScope, symbol, value string) error {
	args := struct {
		Scope  v1Scope
		Symbol string
		Value  string
	}{v1Scope{scope.GoroutineID, scope.Frame}, symbol, value}
	var out struct{}
	return d.t.Call(ctx, "SetSymbol", args, &out)
}

func (d *v1Dialect) detach(ctx context.Context, kill bool) error {
	// Per spec.md §4.5: "v1 passes a bare boolean" for Detach's argument.
	var out struct{}
	return d.t.Call(ctx, "Detach", kill, &out)
}

type v1Scope struct {
	GoroutineID int
	Frame       int
}

func v1ScopeArgs(scope SymbolScope) struct {
	Scope v1Scope
} {
	return struct{ Scope v1Scope }{v1Scope{scope.GoroutineID, scope.Frame}}
}
