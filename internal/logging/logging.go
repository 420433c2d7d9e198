// Package logging builds the process-wide zap logger, honoring the
// --debug and --debug-events flags (spec.md §6): --debug raises the level
// to Debug; --debug-events additionally logs every ProofStatusEvent via
// the scheduler's OnEvent hook.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/status"
)

// Options configures logger construction.
type Options struct {
	Debug  bool
	Writer io.Writer // the work directory's logfile, nil to skip file logging
}

// New builds a *zap.Logger that always writes console-encoded output to
// stderr, and additionally JSON-encodes every entry to Writer when set (so
// `keystone log` can replay a prior run's events from the logfile).
func New(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level),
	}

	if opts.Writer != nil {
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.TimeKey = "ts"
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(opts.Writer), level))
	}

	return zap.New(zapcore.NewTee(cores...))
}

// LogEvent logs a single ProofStatusEvent at Info level; wired to the
// scheduler's OnEvent hook only when --debug-events is set.
func LogEvent(log *zap.Logger, n name.Name, s status.Status) {
	log.Info("proof status event", zap.String("entity", n.DBKey()), zap.String("status", s.String()))
}
