// Package observability holds the process-wide loggers.
//
// CLILogger is initialized once at startup and used by command
// implementations; library packages receive loggers through their
// constructors instead of reaching for the global.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger. It defaults to a no-op logger so
// packages can log before InitCLILogger runs (for example in tests).
var CLILogger = zap.NewNop()

// InitCLILogger configures the global logger. verbose lowers the level to
// debug regardless of level.
func InitCLILogger(level string, verbose bool) {
	lvl := parseLevel(level)
	if verbose {
		lvl = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	CLILogger = zap.New(core)
}

// NewLogger builds a structured logger at the given level for injecting into
// services. profile selects the encoding: "console" for human-readable
// output, anything else for JSON.
func NewLogger(level, profile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if profile == "console" {
		cfg = zap.NewDevelopmentConfig()
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// Sync flushes buffered log entries. Safe to call on a no-op logger.
func Sync() {
	_ = CLILogger.Sync()
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
