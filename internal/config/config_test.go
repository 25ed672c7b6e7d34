package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLaunchDefaults(t *testing.T) {
	t.Parallel()

	l, err := DecodeLaunch(map[string]interface{}{
		"program": "/home/user/proj/main.go",
	})
	require.NoError(t, err)
	assert.Equal(t, "/home/user/proj/main.go", l.Program)
	assert.Equal(t, WireModeAuto, l.Mode)
	assert.Equal(t, TraceError, l.Trace)
	assert.Equal(t, DefaultStackTraceDepth, l.StackTraceDepth)
	assert.Equal(t, 2, l.APIVersion)
	assert.False(t, l.IsAttach)
}

func TestDecodeLaunchMissingProgramErrors(t *testing.T) {
	t.Parallel()

	_, err := DecodeLaunch(map[string]interface{}{})
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestDecodeLaunchRemoteModeAllowsNoProgram(t *testing.T) {
	t.Parallel()

	l, err := DecodeLaunch(map[string]interface{}{"mode": "remote"})
	require.NoError(t, err)
	assert.Equal(t, WireModeRemote, l.Mode)
}

func TestDecodeAttachRequiresProcessIDForLocal(t *testing.T) {
	t.Parallel()

	_, err := DecodeAttach(map[string]interface{}{})
	require.Error(t, err)
}

func TestDecodeAttachKeepsAllDecodedFields(t *testing.T) {
	t.Parallel()

	l, err := DecodeAttach(map[string]interface{}{
		"processId": float64(4242),
		"host":      "127.0.0.1",
		"port":      float64(4040),
		"mode":      "local",
		"showLog":   true,
	})
	require.NoError(t, err)
	assert.True(t, l.IsAttach)
	assert.Equal(t, 4242, l.ProcessID)
	assert.Equal(t, "127.0.0.1", l.Host)
	assert.Equal(t, 4040, l.Port)
	assert.True(t, l.ShowLog)
}

func TestDecodeAttachRemoteModeSkipsProcessIDCheck(t *testing.T) {
	t.Parallel()

	l, err := DecodeAttach(map[string]interface{}{
		"mode": "remote",
		"host": "10.0.0.1",
		"port": float64(4040),
	})
	require.NoError(t, err)
	assert.True(t, l.IsAttach)
	assert.Equal(t, 0, l.ProcessID)
}

func TestNumberFieldAcceptsFloat64AndInt(t *testing.T) {
	t.Parallel()

	v, ok := numberField(float64(7))
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	v, ok = numberField(3)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = numberField("nope")
	assert.False(t, ok)
}

func TestRewriteProgramForGOPATH(t *testing.T) {
	t.Parallel()

	got := RewriteProgramForGOPATH("/home/user/go/src/example.com/proj", "/home/user/go", false)
	assert.Equal(t, "example.com/proj", got)
}

func TestRewriteProgramForGOPATHWithModuleMappingIsNoop(t *testing.T) {
	t.Parallel()

	got := RewriteProgramForGOPATH("/home/user/go/src/example.com/proj", "/home/user/go", true)
	assert.Equal(t, "/home/user/go/src/example.com/proj", got)
}

func TestRewriteProgramForGOPATHOutsideGopathIsNoop(t *testing.T) {
	t.Parallel()

	got := RewriteProgramForGOPATH("/opt/other/main.go", "/home/user/go", false)
	assert.Equal(t, "/opt/other/main.go", got)
}

func TestInferGOPATHWalksUpToSrc(t *testing.T) {
	t.Setenv("GOPATH", "")

	got := InferGOPATH(map[string]string{}, "/home/user/go/src/example.com/proj")
	assert.Equal(t, "/home/user/go", got)
}

func TestInferGOPATHPrefersEnvMap(t *testing.T) {
	t.Parallel()

	got := InferGOPATH(map[string]string{"GOPATH": "/custom/gopath"}, "/home/user/go/src/example.com/proj")
	assert.Equal(t, "/custom/gopath", got)
}

func TestResolveEnvSessionOverridesWin(t *testing.T) {
	t.Parallel()

	l := &Launch{Env: map[string]string{"FOO": "bar"}}
	env := ResolveEnv(l)

	found := false
	for _, kv := range env {
		if kv == "FOO=bar" {
			found = true
		}
	}
	assert.True(t, found, "expected FOO=bar in resolved env, got %v", env)
}

func TestDecodeCommonPopulatesGOROOTAndGOPATHFromEnv(t *testing.T) {
	t.Parallel()

	l, err := DecodeLaunch(map[string]interface{}{
		"program": "/home/user/proj/main.go",
		"env": map[string]interface{}{
			"GOROOT": "/usr/local/go",
			"GOPATH": "/home/user/go",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/go", l.GOROOT)
	assert.Equal(t, "/home/user/go", l.GOPATH)
}

func TestDecodeCommonInfersGOPATHFromProgramDir(t *testing.T) {
	t.Setenv("GOPATH", "")

	l, err := DecodeLaunch(map[string]interface{}{
		"program": "/home/user/go/src/example.com/proj/main.go",
	})
	require.NoError(t, err)
	assert.Equal(t, "/home/user/go", l.GOPATH)
}

func TestDecodeLoadConfigPathFormRoutesToYAMLLoader(t *testing.T) {
	t.Parallel()

	_, err := DecodeLaunch(map[string]interface{}{
		"program":       "/main.go",
		"dlvLoadConfig": "/does/not/exist.yaml",
	})
	require.Error(t, err, "a nonexistent dlvLoadConfig path must surface as a decode error, not be silently ignored")
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestDecodeLoadConfigOverridesDefaults(t *testing.T) {
	t.Parallel()

	l, err := DecodeLaunch(map[string]interface{}{
		"program": "/main.go",
		"dlvLoadConfig": map[string]interface{}{
			"followPointers":     false,
			"maxVariableRecurse": float64(2),
			"maxStringLen":       float64(128),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, l.DlvLoadConfig)
	assert.False(t, l.DlvLoadConfig.FollowPointers)
	assert.Equal(t, 2, l.DlvLoadConfig.MaxVariableRecurse)
	assert.Equal(t, 128, l.DlvLoadConfig.MaxStringLen)
}
