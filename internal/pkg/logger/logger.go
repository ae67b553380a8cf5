package logger

import (
	"log/slog"
	"os"
	"strings"
)

// DebugEnvVar forces debug-level diagnostics regardless of the
// configured log level.
const DebugEnvVar = "SHIPPER_DEBUG"

// New builds the application logger. Diagnostics go to stderr as JSON
// so the shipper's stdin/stdout data path stays clean.
func New(level string) *slog.Logger {
	lvl := parseLevel(level)
	if debugToggled() {
		lvl = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func debugToggled() bool {
	switch strings.ToLower(os.Getenv(DebugEnvVar)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
