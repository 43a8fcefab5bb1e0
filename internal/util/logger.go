// internal/util/logger.go
package util

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// InitLogger builds the global structured logger and installs it with zap.ReplaceGlobals.
// level is one of debug, info, warn, error; an empty level means info.
func InitLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(orDefault(level, "info"))))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	built, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	logger = built
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// GetLogger returns the initialized global logger, falling back to a production logger.
func GetLogger() *zap.Logger {
	if logger == nil {
		if _, err := InitLogger("info"); err != nil {
			return zap.NewNop()
		}
	}
	return logger
}

// SyncLogger flushes buffered log entries. Sync errors on terminals are ignored.
func SyncLogger() {
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "inappropriate ioctl for device") ||
		strings.Contains(msg, "invalid argument")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
