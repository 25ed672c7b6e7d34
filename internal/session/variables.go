package session

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/kestrel-tools/dbgbridge/internal/backend"
)

type nodeKind int

const (
	nodeScopeLocals nodeKind = iota
	nodeScopeGlobals
	nodeVariable
)

// variableNode is what a Variable Handle resolves to: either a scope root
// (locals/args combined, or globals) or an already-rendered backend
// variable awaiting lazy expansion, per spec.md §4.7.
type variableNode struct {
	Kind        nodeKind
	GoroutineID int
	FrameIndex  int
	Variable    backend.Variable
	FQN         string
}

// DisplayScope is what the Scopes DAP handler returns.
type DisplayScope struct {
	Name               string
	VariablesReference int
}

// DisplayVariable is what the Variables DAP handler returns per entry.
type DisplayVariable struct {
	Name               string
	Value              string
	Type               string
	VariablesReference int
}

// Scopes implements the first half of spec.md §4.7: it does not itself
// query the backend, only issues handles that Variables resolves lazily.
func (s *Session) Scopes(frameHandle int) ([]DisplayScope, error) {
	fh, ok := s.frames.Get(frameHandle)
	if !ok {
		return nil, fmt.Errorf("unknown stack frame handle %d", frameHandle)
	}

	scopes := []DisplayScope{
		{
			Name: "Locals",
			VariablesReference: s.vars.Put(variableNode{
				Kind:        nodeScopeLocals,
				GoroutineID: fh.GoroutineID,
				FrameIndex:  fh.FrameIndex,
			}),
		},
	}
	if s.showGlobals {
		scopes = append(scopes, DisplayScope{
			Name: "Globals",
			VariablesReference: s.vars.Put(variableNode{
				Kind:        nodeScopeGlobals,
				FrameIndex:  fh.FrameIndex,
			}),
		})
	}
	return scopes, nil
}

// Variables implements the rest of spec.md §4.7: it resolves a handle and
// renders its children, querying the backend and performing lazy
// expansion where needed.
func (s *Session) Variables(ctx context.Context, variablesReference int) ([]DisplayVariable, error) {
	node, ok := s.vars.Get(variablesReference)
	if !ok {
		return nil, fmt.Errorf("unknown variables reference %d", variablesReference)
	}

	switch node.Kind {
	case nodeScopeLocals:
		return s.renderLocalsScope(ctx, node)
	case nodeScopeGlobals:
		return s.renderGlobalsScope(ctx, node)
	default:
		return s.renderChildren(ctx, node)
	}
}

func (s *Session) renderLocalsScope(ctx context.Context, node variableNode) ([]DisplayVariable, error) {
	scope := backend.SymbolScope{GoroutineID: node.GoroutineID, Frame: node.FrameIndex}

	args, err := s.api.ListFunctionArgs(backendContext(ctx), scope)
	if err != nil {
		return nil, err
	}
	locals, err := s.api.ListLocalVars(backendContext(ctx), scope)
	if err != nil {
		return nil, err
	}

	// Invariant: args precede locals (spec.md §4.7).
	combined := make([]backend.Variable, 0, len(args)+len(locals))
	combined = append(combined, args...)
	combined = append(combined, locals...)

	names := disambiguateShadowed(combined)

	out := make([]DisplayVariable, len(combined))
	for i, v := range combined {
		out[i] = s.renderVariable(v, names[i])
	}
	return out, nil
}

// disambiguateShadowed implements spec.md §4.7's shadow-naming rule:
// group shadowed locals of the same name, order by DeclLine descending,
// and wrap the k-th member's display name in k+1 layers of parentheses.
func disambiguateShadowed(vars []backend.Variable) []string {
	names := make([]string, len(vars))
	groups := map[string][]int{}
	for i, v := range vars {
		if v.Flags.Has(backend.FlagShadowed) {
			groups[v.Name] = append(groups[v.Name], i)
		} else {
			names[i] = v.Name
		}
	}
	for name, idxs := range groups {
		sort.Slice(idxs, func(a, b int) bool {
			return vars[idxs[a]].DeclLine > vars[idxs[b]].DeclLine
		})
		for k, idx := range idxs {
			names[idx] = strings.Repeat("(", k+1) + name + strings.Repeat(")", k+1)
		}
	}
	return names
}

func (s *Session) renderGlobalsScope(ctx context.Context, node variableNode) ([]DisplayVariable, error) {
	pkg, err := s.currentPackage(node.FrameIndex)
	if err != nil {
		// Globals are omitted, not reported as an error, when the package
		// lookup fails (e.g. the source directory no longer exists).
		s.log.V(1).Info("globals lookup failed", "err", err)
		return nil, nil
	}

	vars, err := s.api.ListPackageVars(backendContext(ctx), "^"+pkg+"\\.")
	if err != nil {
		return nil, err
	}

	out := make([]DisplayVariable, 0, len(vars))
	for _, v := range vars {
		name := strings.TrimPrefix(v.Name, pkg+".")
		if name == "initdone·" {
			continue
		}
		out = append(out, s.renderVariable(v, name))
	}
	return out, nil
}

// currentPackage resolves the package name for the directory of the most
// recent stop location via `go list`, cached per directory, per spec.md
// §4.7. frameIndex is not consulted.
func (s *Session) currentPackage(frameIndex int) (string, error) {
	// Frame location lookup happens at StackTrace time; globals lookups
	// in this bridge are keyed on the most recently reported stop
	// location's directory, cached for the session's lifetime.
	s.mu.Lock()
	dir := s.lastStopDir
	s.mu.Unlock()
	if dir == "" {
		return "", fmt.Errorf("no known source directory for globals lookup")
	}

	s.mu.Lock()
	if info, ok := s.pkgCache[dir]; ok {
		s.mu.Unlock()
		return info.name, nil
	}
	s.mu.Unlock()

	cmd := exec.Command("go", "list", "-f", "{{.Name}} {{.ImportPath}}")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("go list: %w", err)
	}
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 {
		return "", fmt.Errorf("unexpected go list output %q", out)
	}
	info := pkgInfo{name: fields[0], importPath: fields[1]}
	s.mu.Lock()
	s.pkgCache[dir] = info
	s.mu.Unlock()
	return info.name, nil
}

func (s *Session) renderChildren(ctx context.Context, node variableNode) ([]DisplayVariable, error) {
	v := node.Variable
	children := v.Children

	if needsLazyExpansion(v) {
		expanded, err := s.api.Eval(backendContext(ctx), backend.SymbolScope{}, node.FQN)
		if err == nil {
			children = expanded.Children
		}
	}

	if v.Kind == backend.KindMap {
		return s.renderMapChildren(node, children), nil
	}

	out := make([]DisplayVariable, len(children))
	for i, c := range children {
		fqn := node.FQN + "." + c.Name
		if v.Kind == backend.KindArray || v.Kind == backend.KindSlice {
			fqn = fmt.Sprintf("%s[%d]", node.FQN, i)
		}
		out[i] = s.renderVariable(c, c.Name)
		out[i].VariablesReference = s.childRef(c, fqn)
	}
	return out, nil
}

func needsLazyExpansion(v backend.Variable) bool {
	if v.Len > int64(len(v.Children)) {
		return true
	}
	if len(v.Children) > 0 && v.Children[0].OnlyAddr {
		return true
	}
	return false
}

func (s *Session) renderMapChildren(node variableNode, children []backend.Variable) []DisplayVariable {
	out := make([]DisplayVariable, 0, len(children))
	for i := 0; i+1 < len(children); i += 2 {
		key, val := children[i], children[i+1]
		rendered := s.renderVariable(key, key.Name)
		rendered.VariablesReference = 0

		valFQN := fmt.Sprintf("%s[%s]", node.FQN, rendered.Value)
		valOut := s.renderVariable(val, rendered.Value)
		valOut.VariablesReference = s.childRef(val, valFQN)
		out = append(out, valOut)
	}
	return out
}

func (s *Session) childRef(v backend.Variable, fqn string) int {
	if !isExpandable(v) {
		return 0
	}
	return s.vars.Put(variableNode{Kind: nodeVariable, Variable: v, FQN: fqn})
}

// renderVariable implements spec.md §4.7's per-kind rendering table.
func (s *Session) renderVariable(v backend.Variable, displayName string) DisplayVariable {
	out := DisplayVariable{Name: displayName, Type: v.Type}

	switch {
	case v.Unreadable != "":
		out.Value = v.Unreadable
		return out
	case v.Kind == backend.KindUnsafePointer:
		out.Value = fmt.Sprintf("unsafe.Pointer(0x%x)", v.Addr)
		return out
	case v.Kind == backend.KindPtr:
		switch {
		case v.Base == 0:
			out.Value = "nil " + v.Type
		case v.RealType == "void":
			out.Value = "void"
		default:
			out.Value = fmt.Sprintf("%s(0x%x)", v.Type, v.Addr)
			out.VariablesReference = s.childRef(v, displayName)
		}
		return out
	case v.Kind == backend.KindSlice:
		if v.Base == 0 {
			out.Value = "nil " + v.Type
			return out
		}
		out.Value = fmt.Sprintf("%s (length: %d, cap: %d)", v.Type, v.Len, v.Cap)
		out.VariablesReference = s.childRef(v, displayName)
		return out
	case v.Kind == backend.KindMap:
		if v.Base == 0 {
			out.Value = "nil " + v.Type
			return out
		}
		out.Value = fmt.Sprintf("%s (length: %d)", v.Type, v.Len)
		out.VariablesReference = s.childRef(v, displayName)
		return out
	case v.Kind == backend.KindArray:
		out.Value = v.Type
		out.VariablesReference = s.childRef(v, displayName)
		return out
	case v.Kind == backend.KindString:
		bytesRead := int64(len(v.Value))
		if v.Len > bytesRead {
			out.Value = fmt.Sprintf("%q...+%d more", v.Value, v.Len-bytesRead)
		} else {
			out.Value = fmt.Sprintf("%q", v.Value)
		}
		return out
	default:
		if v.Value != "" {
			out.Value = v.Value
		} else {
			out.Value = v.Type
		}
		out.VariablesReference = s.childRef(v, displayName)
		return out
	}
}

func isExpandable(v backend.Variable) bool {
	switch v.Kind {
	case backend.KindSlice, backend.KindMap, backend.KindArray:
		return v.Base != 0 || len(v.Children) > 0
	case backend.KindPtr:
		return v.Base != 0 && len(v.Children) > 0
	default:
		return len(v.Children) > 0
	}
}

// Evaluate implements the DAP evaluate request: a free-form expression
// scoped to a frame.
func (s *Session) Evaluate(ctx context.Context, frameHandle int, expr string) (DisplayVariable, error) {
	scope := backend.SymbolScope{}
	if frameHandle != 0 {
		if fh, ok := s.frames.Get(frameHandle); ok {
			scope = backend.SymbolScope{GoroutineID: fh.GoroutineID, Frame: fh.FrameIndex}
		}
	}
	v, err := s.api.Eval(backendContext(ctx), scope, expr)
	if err != nil {
		return DisplayVariable{}, err
	}
	out := s.renderVariable(v, expr)
	out.VariablesReference = s.childRef(v, expr)
	return out, nil
}

// SetVariable implements the DAP setVariable request by re-resolving the
// owning scope/variable's fully-qualified-name and issuing Set.
func (s *Session) SetVariable(ctx context.Context, variablesReference int, name, value string) (DisplayVariable, error) {
	node, ok := s.vars.Get(variablesReference)
	if !ok {
		return DisplayVariable{}, fmt.Errorf("unknown variables reference %d", variablesReference)
	}

	var scope backend.SymbolScope
	var fqn string
	switch node.Kind {
	case nodeScopeLocals:
		scope = backend.SymbolScope{GoroutineID: node.GoroutineID, Frame: node.FrameIndex}
		fqn = name
	default:
		fqn = node.FQN + "." + name
	}

	if err := s.api.Set(backendContext(ctx), scope, fqn, value); err != nil {
		return DisplayVariable{}, err
	}
	v, err := s.api.Eval(backendContext(ctx), scope, fqn)
	if err != nil {
		return DisplayVariable{}, err
	}
	out := s.renderVariable(v, name)
	out.VariablesReference = s.childRef(v, fqn)
	return out, nil
}
