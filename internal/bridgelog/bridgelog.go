// Package bridgelog constructs the logr.Logger used throughout the bridge.
package bridgelog

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Verbose enables V(1) debug-level logging (mirrors the launch arg "showLog").
	Verbose bool

	// Output receives log lines. If nil, os.Stderr is used. Never os.Stdout,
	// which carries the DAP wire when running in stdio mode.
	Output io.Writer

	// TraceLevel narrows verbosity independently of Verbose: "verbose", "log", "error".
	TraceLevel string
}

// New builds a logr.Logger backed by zap, matching the level the launch
// arguments requested.
func New(opts Options) logr.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := zapcore.InfoLevel
	switch opts.TraceLevel {
	case "verbose":
		level = zapcore.DebugLevel
	case "error":
		level = zapcore.ErrorLevel
	case "log":
		level = zapcore.InfoLevel
	}
	if opts.Verbose && level > zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(out),
		level,
	)

	zl := zap.New(core)
	return zapr.NewLogger(zl)
}

// Discard returns a logger that drops everything, for tests and defaults.
func Discard() logr.Logger {
	return logr.Discard()
}
