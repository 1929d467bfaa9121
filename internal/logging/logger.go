// Package logging configures the structured logger shared by the CLI and
// the pipeline. Logs go to stderr as JSON so stdout stays clean for
// rendered reports.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON slog logger tagged with the service name
func New(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
