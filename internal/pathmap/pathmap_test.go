package pathmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRemoteIdentityWithoutRemoteRoot(t *testing.T) {
	t.Parallel()

	m := New("/home/user/proj", "", false, "", nil)
	assert.Equal(t, "/home/user/proj/main.go", m.ToRemote("/home/user/proj/main.go"))
}

func TestToRemoteAndBackRoundTrip(t *testing.T) {
	t.Parallel()

	m := New("/home/user/proj", "/go/src/proj", false, "", nil)

	remote := m.ToRemote("/home/user/proj/pkg/thing.go")
	assert.Equal(t, "/go/src/proj/pkg/thing.go", remote)

	local := m.ToLocal(remote)
	assert.Equal(t, "/home/user/proj/pkg/thing.go", local)
}

func TestToRemoteWindowsSeparators(t *testing.T) {
	t.Parallel()

	m := New("/home/user/proj", `C:\remote\proj`, true, "", nil)

	remote := m.ToRemote("/home/user/proj/pkg/thing.go")
	assert.Equal(t, `C:\remote\proj\pkg\thing.go`, remote)
}

func TestToLocalGOROOTFallback(t *testing.T) {
	t.Parallel()

	m := New("/home/user/proj", "/go/src/proj", false, "/usr/local/go", nil)

	local := m.ToLocal("/usr/lib/go-1.22/src/runtime/proc.go")
	assert.Equal(t, "/usr/local/go/src/runtime/proc.go", local)
}

func TestToLocalGOPATHModCacheFallback(t *testing.T) {
	t.Parallel()

	m := New("/home/user/proj", "/go/src/proj", false, "", []string{"/home/user/go"})

	local := m.ToLocal("/remote/go/pkg/mod/github.com/foo/bar@v1.0.0/baz.go")
	assert.Equal(t, "/home/user/go/pkg/mod/github.com/foo/bar@v1.0.0/baz.go", local)
}

func TestToLocalNoApplicableRulePassesThrough(t *testing.T) {
	t.Parallel()

	m := New("/home/user/proj", "/go/src/proj", false, "", nil)
	assert.Equal(t, "/some/unrelated/path.go", m.ToLocal("/some/unrelated/path.go"))
}

func TestTieBreakRootsStripsCommonSrcSuffix(t *testing.T) {
	t.Parallel()

	m := New("/home/user/go/src", "/go/src", false, "", nil)
	remote := m.ToRemote("/home/user/go/src/proj/main.go")
	assert.Equal(t, "/go/src/proj/main.go", remote)
}

func TestToLocalGOPATHModCacheFallbackAttachRemoteWiring(t *testing.T) {
	t.Parallel()

	// Mirrors the attach-remote wiring in internal/session/lifecycle.go:
	// no remote root configured, GOROOT/GOPATH threaded in from config.Launch.
	m := New("", "", false, "", []string{"/home/u/go"})

	local := m.ToLocal("/root/go/pkg/mod/rsc.io/quote@v1.5.2/quote.go")
	assert.Equal(t, "/home/u/go/pkg/mod/rsc.io/quote@v1.5.2/quote.go", local)
}

func TestLooksLikeWindowsPath(t *testing.T) {
	t.Parallel()

	assert.True(t, LooksLikeWindowsPath(`C:\remote\proj\main.go`))
	assert.True(t, LooksLikeWindowsPath(`c:\remote\proj\main.go`))
	assert.False(t, LooksLikeWindowsPath("/remote/proj/main.go"))
	assert.False(t, LooksLikeWindowsPath(""))
}

func TestNormalizeDriveCasing(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `C:\foo\bar`, normalizeDriveCasing(`c:\foo\bar`))
	assert.Equal(t, `C:\foo\bar`, normalizeDriveCasing(`C:\foo\bar`))
	assert.Equal(t, `/no/drive`, normalizeDriveCasing(`/no/drive`))
}
