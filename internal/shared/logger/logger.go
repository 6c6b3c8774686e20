// Package logger builds the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Config controls handler selection and verbosity.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // "json" or "" (console/tint)
}

// New builds a *slog.Logger per cfg. Console output uses tint for
// human-readable, colorized lines; Format == "json" switches to
// slog.NewJSONHandler for machine consumption. Warn/Error records carry a
// source location via NewConditionalSourceHandler; Debug/Info stay terse.
func New(cfg Config) *slog.Logger {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		})
	}

	handler = NewConditionalSourceHandler(handler, slog.LevelWarn, slog.LevelError)
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
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

// VerbosityToLevel maps a repeated -v count to a level string, matching the
// CLI's "-v increases verbosity" contract: 0 => info, 1 => debug, 2+ => debug.
func VerbosityToLevel(count int) string {
	if count > 0 {
		return "debug"
	}
	return "info"
}
