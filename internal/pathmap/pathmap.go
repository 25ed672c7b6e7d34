// Package pathmap translates file paths between the local workspace and
// the remote debugger's path space, per spec.md §4.3. All functions are
// pure; the mapper itself does no I/O.
package pathmap

import (
	"strings"
)

// Mapper holds the root prefixes and separators for both sides. An empty
// RemoteRoot means "no remote root configured", as for a local
// launch/attach session: ToRemote is then the identity, while ToLocal
// still applies the GOROOT/GOPATH fallback rules.
type Mapper struct {
	LocalRoot      string
	RemoteRoot     string
	LocalSep       byte
	RemoteSep      byte
	GOROOT         string
	GOPATHElements []string
}

// LooksLikeWindowsPath reports whether path is shaped like a Windows path
// (a backslash, or a drive-letter prefix such as "C:"), used to pick the
// remote separator when the bridge has no other signal about the remote
// host's OS.
func LooksLikeWindowsPath(path string) bool {
	if strings.ContainsRune(path, '\\') {
		return true
	}
	return len(path) >= 2 && path[1] == ':' && ((path[0] >= 'a' && path[0] <= 'z') || (path[0] >= 'A' && path[0] <= 'Z'))
}

// New builds a Mapper, applying the separator/casing normalization rule
// from spec.md §4.3 up front.
func New(localRoot, remoteRoot string, remoteIsWindows bool, goroot string, gopathElements []string) *Mapper {
	localSep := byte('/')
	remoteSep := byte('/')
	if remoteIsWindows {
		remoteSep = '\\'
	}

	return &Mapper{
		LocalRoot:      trimTrailingSep(normalizeSeparators(localRoot, localSep)),
		RemoteRoot:     trimTrailingSep(normalizeSeparators(remoteRoot, remoteSep)),
		LocalSep:       localSep,
		RemoteSep:      remoteSep,
		GOROOT:         goroot,
		GOPATHElements: gopathElements,
	}
}

// ToRemote translates a local path into the remote path space (forward
// direction, spec.md §4.3). Identity if no remote root is configured.
func (m *Mapper) ToRemote(local string) string {
	if m.RemoteRoot == "" {
		return local
	}

	local = normalizeSeparators(local, m.LocalSep)
	localRoot, remoteRoot := m.tieBreakRoots()

	if !strings.HasPrefix(local, localRoot) {
		return reseparate(local, m.LocalSep, m.RemoteSep)
	}

	suffix := local[len(localRoot):]
	rewritten := remoteRoot + reseparate(suffix, m.LocalSep, m.RemoteSep)
	return rewritten
}

// ToLocal translates a remote path into the local path space (reverse
// direction, spec.md §4.3), applying the GOROOT/GOPATH fallback rules
// when the path does not fall under the configured remote root.
func (m *Mapper) ToLocal(remote string) string {
	localRoot, remoteRoot := m.tieBreakRoots()

	if remoteRoot != "" && strings.HasPrefix(remote, remoteRoot) {
		suffix := remote[len(remoteRoot):]
		return localRoot + reseparate(suffix, m.RemoteSep, m.LocalSep)
	}

	srcMarker := string(m.RemoteSep) + "src" + string(m.RemoteSep)
	if idx := strings.Index(remote, srcMarker); idx >= 0 && m.GOROOT != "" {
		suffix := remote[idx:]
		return trimTrailingSep(m.GOROOT) + reseparate(suffix, m.RemoteSep, m.LocalSep)
	}

	modMarker := string(m.RemoteSep) + "pkg" + string(m.RemoteSep) + "mod" + string(m.RemoteSep)
	if idx := strings.Index(remote, modMarker); idx >= 0 && len(m.GOPATHElements) > 0 {
		suffix := remote[idx:]
		return trimTrailingSep(m.GOPATHElements[0]) + reseparate(suffix, m.RemoteSep, m.LocalSep)
	}

	// No applicable rule: pass through unchanged.
	return remote
}

// tieBreakRoots applies spec.md §4.3's tie-breaking rule: if local and
// remote roots share a common suffix ending at a "src" directory, strip it
// from both before use.
func (m *Mapper) tieBreakRoots() (localRoot, remoteRoot string) {
	localRoot, remoteRoot = m.LocalRoot, m.RemoteRoot

	localSrcSep := string(m.LocalSep) + "src"
	remoteSrcSep := string(m.RemoteSep) + "src"

	if strings.HasSuffix(localRoot, localSrcSep) && strings.HasSuffix(remoteRoot, remoteSrcSep) {
		localRoot = localRoot[:len(localRoot)-len(localSrcSep)]
		remoteRoot = remoteRoot[:len(remoteRoot)-len(remoteSrcSep)]
	}

	return localRoot, remoteRoot
}

// normalizeSeparators picks the separator actually present in the input
// (forward slash tolerated on a Windows-style host) then rewrites to sep.
func normalizeSeparators(path string, sep byte) string {
	if sep == '\\' {
		return normalizeDriveCasing(strings.ReplaceAll(path, "/", "\\"))
	}
	return strings.ReplaceAll(path, "\\", "/")
}

// normalizeDriveCasing canonicalizes a Windows drive-letter prefix
// ("c:\..." -> "C:\...") so path comparisons are case-insensitive on the
// drive letter only.
func normalizeDriveCasing(path string) string {
	if len(path) >= 2 && path[1] == ':' {
		b := []byte(path)
		if b[0] >= 'a' && b[0] <= 'z' {
			b[0] = b[0] - 'a' + 'A'
		}
		return string(b)
	}
	return path
}

func reseparate(path string, from, to byte) string {
	if from == to {
		return path
	}
	return strings.ReplaceAll(path, string(from), string(to))
}

func trimTrailingSep(path string) string {
	return strings.TrimRight(path, "/\\")
}
