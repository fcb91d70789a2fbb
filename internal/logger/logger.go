package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New creates a logger with the given level and format.
// Format "json" produces machine-readable output; anything else gets a
// colored console handler suitable for interactive runs.
func New(level, format string) *slog.Logger {
	logLevel := parseLevel(level)

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		})
	default:
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.TimeOnly,
		})
	}

	return slog.New(handler)
}

// FromEnv builds a logger from FLOWRUN_LOG_LEVEL and FLOWRUN_LOG_FORMAT.
func FromEnv() *slog.Logger {
	return New(os.Getenv("FLOWRUN_LOG_LEVEL"), os.Getenv("FLOWRUN_LOG_FORMAT"))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
