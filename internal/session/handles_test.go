package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleArenaPutGet(t *testing.T) {
	t.Parallel()

	a := newHandleArena[string]()
	h1 := a.Put("one")
	h2 := a.Put("two")

	v, ok := a.Get(h1)
	assert.True(t, ok)
	assert.Equal(t, "one", v)

	v, ok = a.Get(h2)
	assert.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestHandleArenaGetUnknownHandle(t *testing.T) {
	t.Parallel()

	a := newHandleArena[int]()
	_, ok := a.Get(999)
	assert.False(t, ok)
}

func TestHandleArenaResetInvalidatesOldHandles(t *testing.T) {
	t.Parallel()

	a := newHandleArena[int]()
	h := a.Put(42)

	a.Reset()

	_, ok := a.Get(h)
	assert.False(t, ok, "handle from a prior generation must not resolve")
}

func TestHandleArenaDoesNotReuseHandleNumbersAcrossGenerations(t *testing.T) {
	t.Parallel()

	a := newHandleArena[int]()
	h1 := a.Put(1)
	a.Reset()
	h2 := a.Put(2)

	assert.NotEqual(t, h1, h2, "handle numbering continues after Reset")

	_, ok := a.Get(h1)
	assert.False(t, ok, "a stale handle must not resolve to the new generation's data")

	v, ok := a.Get(h2)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
