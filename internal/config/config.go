// Package config decodes and resolves DAP launch/attach arguments into
// the values the rest of the bridge needs: environment, GOPATH inference,
// path-mapper roots, and the backend launch spec.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kestrel-tools/dbgbridge/internal/backend"
)

// WireMode mirrors spec.md §6's launch-argument `mode` enum as written on the
// wire, before it is resolved to a backend.Mode.
type WireMode string

const (
	WireModeAuto   WireMode = "auto"
	WireModeDebug  WireMode = "debug"
	WireModeTest   WireMode = "test"
	WireModeExec   WireMode = "exec"
	WireModeRemote WireMode = "remote"
)

// Trace is the launch argument `trace` enum.
type Trace string

const (
	TraceVerbose Trace = "verbose"
	TraceLog     Trace = "log"
	TraceError   Trace = "error"
)

// Launch is the fully decoded and resolved form of a DAP launch/attach
// request's Arguments, per spec.md §6 "Launch arguments"/"Attach arguments".
type Launch struct {
	IsAttach bool

	Program    string
	Args       []string
	Cwd        string
	Env        map[string]string
	Mode       WireMode
	BuildFlags string
	Output     string
	NoDebug    bool
	StopOnEntry bool
	ShowLog    bool
	LogOutput  string
	Trace      Trace

	Host string
	Port int

	RemotePath string
	Backend    string
	Init       string
	DlvToolPath string
	APIVersion int

	StackTraceDepth int
	DlvLoadConfig   *backend.LoadConfig
	ShowGlobalVariables bool
	PackagePathToGoModPathMap map[string]string

	ProcessID int

	GOPATH string
	GOROOT string
}

// DefaultStackTraceDepth matches spec.md §3's session default.
const DefaultStackTraceDepth = 50

// ConfigError is a configuration error per spec.md §7 kind 1 (missing
// program, missing processId, unreadable env file or dlvLoadConfig): it is
// reported as an ErrorResponse on the originating request without starting
// a session.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// DecodeLaunch reads the DAP LaunchRequest.Arguments payload (already
// unmarshaled into a generic map by the caller) into a Launch value,
// applying env-file merging and defaults.
func DecodeLaunch(raw map[string]interface{}) (*Launch, error) {
	return decodeCommon(raw, false)
}

func decodeCommon(raw map[string]interface{}, skipProgramCheck bool) (*Launch, error) {
	l := &Launch{
		Mode:            WireModeAuto,
		Trace:           TraceError,
		StackTraceDepth: DefaultStackTraceDepth,
		APIVersion:      2,
		Env:             map[string]string{},
	}

	l.Program, _ = raw["program"].(string)
	l.Cwd, _ = raw["cwd"].(string)
	l.Output, _ = raw["output"].(string)
	l.BuildFlags, _ = raw["buildFlags"].(string)
	l.RemotePath, _ = raw["remotePath"].(string)
	l.Backend, _ = raw["backend"].(string)
	l.Init, _ = raw["init"].(string)
	l.DlvToolPath, _ = raw["dlvToolPath"].(string)
	l.LogOutput, _ = raw["logOutput"].(string)
	l.Host, _ = raw["host"].(string)

	if v, ok := raw["noDebug"].(bool); ok {
		l.NoDebug = v
	}
	if v, ok := raw["stopOnEntry"].(bool); ok {
		l.StopOnEntry = v
	}
	if v, ok := raw["showLog"].(bool); ok {
		l.ShowLog = v
	}
	if v, ok := raw["showGlobalVariables"].(bool); ok {
		l.ShowGlobalVariables = v
	}
	if v, ok := raw["mode"].(string); ok && v != "" {
		l.Mode = WireMode(v)
	}
	if v, ok := raw["trace"].(string); ok && v != "" {
		l.Trace = Trace(v)
	}
	if v, ok := numberField(raw["apiVersion"]); ok {
		l.APIVersion = v
	}
	if v, ok := numberField(raw["port"]); ok {
		l.Port = v
	}
	if v, ok := numberField(raw["stackTraceDepth"]); ok && v > 0 {
		l.StackTraceDepth = v
	}
	if v, ok := numberField(raw["processId"]); ok {
		l.ProcessID = v
	}

	if args, ok := raw["args"].([]interface{}); ok {
		for _, a := range args {
			if s, ok := a.(string); ok {
				l.Args = append(l.Args, s)
			}
		}
	}

	if m, ok := raw["packagePathToGoModPathMap"].(map[string]interface{}); ok {
		l.PackagePathToGoModPathMap = map[string]string{}
		for k, v := range m {
			if s, ok := v.(string); ok {
				l.PackagePathToGoModPathMap[k] = s
			}
		}
	}

	if cfgRaw, ok := raw["dlvLoadConfig"]; ok && cfgRaw != nil {
		if path, ok := cfgRaw.(string); ok {
			cfg, err := LoadYAMLLoadConfig(path)
			if err != nil {
				return nil, configErrorf("dlvLoadConfig %q: %v", path, err)
			}
			l.DlvLoadConfig = cfg
		} else {
			cfg, err := decodeLoadConfig(cfgRaw)
			if err != nil {
				return nil, configErrorf("dlvLoadConfig: %v", err)
			}
			l.DlvLoadConfig = cfg
		}
	}

	if env, ok := raw["env"].(map[string]interface{}); ok {
		for k, v := range env {
			if s, ok := v.(string); ok {
				l.Env[k] = s
			}
		}
	}

	if err := mergeEnvFiles(raw["envFile"], l.Env); err != nil {
		return nil, err
	}

	l.GOROOT = envLookup(l.Env, "GOROOT")
	if l.GOROOT == "" {
		l.GOROOT = os.Getenv("GOROOT")
	}

	programDir := ""
	if l.Program != "" {
		programDir = filepath.Dir(l.Program)
	}
	l.GOPATH = InferGOPATH(l.Env, programDir)

	if !skipProgramCheck && l.Program == "" && l.Mode != WireModeRemote {
		return nil, configErrorf("launch requires a program")
	}

	return l, nil
}

// DecodeAttach reads a DAP AttachRequest.Arguments payload.
func DecodeAttach(raw map[string]interface{}) (*Launch, error) {
	l, err := decodeCommon(raw, true)
	if err != nil {
		return nil, err
	}
	l.IsAttach = true

	attachMode, _ := raw["mode"].(string)
	if attachMode == "" {
		attachMode = "local"
	}
	if attachMode == "local" {
		if l.ProcessID == 0 {
			return nil, configErrorf("attach requires processId")
		}
	}
	return l, nil
}

// numberField accepts both float64 (JSON numbers decode this way) and int.
func numberField(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func decodeLoadConfig(raw interface{}) (*backend.LoadConfig, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an object")
	}
	cfg := backend.DefaultLoadConfig()
	if v, ok := m["followPointers"].(bool); ok {
		cfg.FollowPointers = v
	}
	if v, ok := numberField(m["maxVariableRecurse"]); ok {
		cfg.MaxVariableRecurse = v
	}
	if v, ok := numberField(m["maxStringLen"]); ok {
		cfg.MaxStringLen = v
	}
	if v, ok := numberField(m["maxArrayValues"]); ok {
		cfg.MaxArrayValues = v
	}
	if v, ok := numberField(m["maxStructFields"]); ok {
		cfg.MaxStructFields = v
	}
	return &cfg, nil
}

// mergeEnvFiles loads one or more env files (godotenv format) named by
// envFile (string or list, per spec.md §6), later files overriding
// earlier ones, and finally lets already-present per-launch overrides in
// dst win over anything loaded here.
func mergeEnvFiles(envFile interface{}, dst map[string]string) error {
	var files []string
	switch v := envFile.(type) {
	case string:
		if v != "" {
			files = append(files, v)
		}
	case []interface{}:
		for _, e := range v {
			if s, ok := e.(string); ok && s != "" {
				files = append(files, s)
			}
		}
	}
	if len(files) == 0 {
		return nil
	}

	merged := map[string]string{}
	for _, f := range files {
		vars, err := godotenv.Read(f)
		if err != nil {
			return configErrorf("env file %q: %v", f, err)
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	// Per-launch overrides (already in dst) win over anything loaded from files.
	for k, v := range dst {
		merged[k] = v
	}
	for k, v := range merged {
		dst[k] = v
	}
	return nil
}

// ResolveEnv builds the full process environment: the host's environment
// overlaid with the session's merged env map.
func ResolveEnv(l *Launch) []string {
	base := os.Environ()
	out := make([]string, 0, len(base)+len(l.Env))
	seen := map[string]bool{}
	for k, v := range l.Env {
		out = append(out, k+"="+v)
		seen[k] = true
	}
	for _, kv := range base {
		k := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k = kv[:i]
		}
		if !seen[k] {
			out = append(out, kv)
		}
	}
	return out
}

// InferGOPATH computes a workspace GOPATH from the program's directory
// when none is set in the environment, per spec.md §6 "Environment": walks
// upward from the program directory looking for a "src" ancestor segment.
func InferGOPATH(env map[string]string, programDir string) string {
	if gp := envLookup(env, "GOPATH"); gp != "" {
		return gp
	}
	if gp := os.Getenv("GOPATH"); gp != "" {
		return gp
	}

	dir := programDir
	for {
		base := filepath.Base(dir)
		parent := filepath.Dir(dir)
		if base == "src" {
			return filepath.Dir(dir)
		}
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func envLookup(env map[string]string, key string) string {
	if env == nil {
		return ""
	}
	return env[key]
}

// RewriteProgramForGOPATH applies spec.md §4.2's rule: "launch under an
// inferred GOPATH workspace and no explicit module mapping → rewrite the
// program argument to the package path relative to the GOPATH workspace."
func RewriteProgramForGOPATH(program, gopath string, hasModuleMapping bool) string {
	if hasModuleMapping || gopath == "" {
		return program
	}
	srcRoot := filepath.Join(gopath, "src") + string(filepath.Separator)
	dir := program
	if !dirLooksLikePackage(program) {
		dir = filepath.Dir(program)
	}
	if !strings.HasPrefix(dir, srcRoot) {
		return program
	}
	rel := strings.TrimPrefix(dir, srcRoot)
	return filepath.ToSlash(rel)
}

func dirLooksLikePackage(p string) bool {
	return filepath.Ext(p) == ""
}

// LoadYAMLLoadConfig reads an external dlvLoadConfig override file, for
// the rare case it is supplied as a path rather than inline JSON — kept
// for parity with the teacher's YAML config-loading convention.
func LoadYAMLLoadConfig(path string) (*backend.LoadConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := backend.DefaultLoadConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
