package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel-tools/dbgbridge/internal/backend"
)

func TestDisambiguateShadowedNoShadowing(t *testing.T) {
	t.Parallel()

	vars := []backend.Variable{{Name: "a"}, {Name: "b"}}
	names := disambiguateShadowed(vars)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestDisambiguateShadowedWrapsByDeclLineDescending(t *testing.T) {
	t.Parallel()

	vars := []backend.Variable{
		{Name: "x", Flags: backend.FlagShadowed, DeclLine: 3},
		{Name: "x", Flags: backend.FlagShadowed, DeclLine: 10},
		{Name: "x", Flags: backend.FlagShadowed, DeclLine: 1},
	}
	names := disambiguateShadowed(vars)

	// DeclLine 10 is innermost (most recent), gets one pair of parens.
	assert.Equal(t, "(x)", names[1])
	assert.Equal(t, "((x))", names[0])
	assert.Equal(t, "(((x)))", names[2])
}

func TestNeedsLazyExpansionPartialLoad(t *testing.T) {
	t.Parallel()

	v := backend.Variable{Len: 10, Children: []backend.Variable{{}, {}}}
	assert.True(t, needsLazyExpansion(v))
}

func TestNeedsLazyExpansionOnlyAddrPlaceholder(t *testing.T) {
	t.Parallel()

	v := backend.Variable{Children: []backend.Variable{{OnlyAddr: true}}}
	assert.True(t, needsLazyExpansion(v))
}

func TestNeedsLazyExpansionFullyLoadedIsFalse(t *testing.T) {
	t.Parallel()

	v := backend.Variable{Len: 2, Children: []backend.Variable{{}, {}}}
	assert.False(t, needsLazyExpansion(v))
}

func TestIsExpandableSliceRequiresBaseOrChildren(t *testing.T) {
	t.Parallel()

	assert.False(t, isExpandable(backend.Variable{Kind: backend.KindSlice}))
	assert.True(t, isExpandable(backend.Variable{Kind: backend.KindSlice, Base: 1}))
	assert.True(t, isExpandable(backend.Variable{Kind: backend.KindSlice, Children: []backend.Variable{{}}}))
}

func TestIsExpandablePtrRequiresBaseAndChildren(t *testing.T) {
	t.Parallel()

	assert.False(t, isExpandable(backend.Variable{Kind: backend.KindPtr, Base: 1}))
	assert.False(t, isExpandable(backend.Variable{Kind: backend.KindPtr, Children: []backend.Variable{{}}}))
	assert.True(t, isExpandable(backend.Variable{Kind: backend.KindPtr, Base: 1, Children: []backend.Variable{{}}}))
}

func newTestSession() *Session {
	return &Session{vars: newHandleArena[variableNode]()}
}

func TestRenderVariableUnreadable(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	out := s.renderVariable(backend.Variable{Unreadable: "read out of bounds"}, "x")
	assert.Equal(t, "read out of bounds", out.Value)
	assert.Equal(t, 0, out.VariablesReference)
}

func TestRenderVariableNilPointer(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	out := s.renderVariable(backend.Variable{Kind: backend.KindPtr, Type: "*int", Base: 0}, "p")
	assert.Equal(t, "nil *int", out.Value)
	assert.Equal(t, 0, out.VariablesReference)
}

func TestRenderVariableNilSliceHasNoReference(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	out := s.renderVariable(backend.Variable{Kind: backend.KindSlice, Type: "[]int", Base: 0}, "s")
	assert.Equal(t, "nil []int", out.Value)
	assert.Equal(t, 0, out.VariablesReference)
}

func TestRenderVariableNonNilSliceGetsReference(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	out := s.renderVariable(backend.Variable{Kind: backend.KindSlice, Type: "[]int", Base: 1, Len: 3, Cap: 4}, "s")
	assert.Equal(t, "[]int (length: 3, cap: 4)", out.Value)
	assert.NotEqual(t, 0, out.VariablesReference)
}

func TestRenderVariableTruncatedString(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	out := s.renderVariable(backend.Variable{Kind: backend.KindString, Type: "string", Value: "hell", Len: 10}, "str")
	assert.Equal(t, `"hell"...+6 more`, out.Value)
}

func TestRenderVariableFullyReadString(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	out := s.renderVariable(backend.Variable{Kind: backend.KindString, Type: "string", Value: "hi", Len: 2}, "str")
	assert.Equal(t, `"hi"`, out.Value)
}
