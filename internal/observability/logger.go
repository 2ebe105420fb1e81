// Package observability builds the process logger. The dashboard owns the
// terminal, so logs go to a file instead of stdout.
package observability

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger opens a file-backed zap logger. Level comes from
// SKYCAST_LOG_LEVEL (debug, info, warn, error); default is info.
// Failure to open the log file degrades to a no-op logger rather than
// breaking the UI.
func NewLogger() *zap.Logger {
	level := zapcore.InfoLevel
	if raw := os.Getenv("SKYCAST_LOG_LEVEL"); raw != "" {
		if parsed, err := zapcore.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	path := os.Getenv("SKYCAST_LOG_FILE")
	if path == "" {
		path = filepath.Join(stateDir(), "skycast.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zap.NewNop()
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(f),
		level,
	)
	return zap.New(core)
}

func stateDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, "skycast")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state", "skycast")
}
