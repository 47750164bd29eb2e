package modindex

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger wraps slog.Logger with index-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewConsoleLogger creates a Logger with colored, aligned output for
// interactive terminals.
func NewConsoleLogger(level slog.Level) *Logger {
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "modindex",
		Level:           log.Level(level),
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	return NewLogger(handler)
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithDir adds a dir field to the logger.
func (l *Logger) WithDir(dir string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dir", dir),
	}
}

// LogOpen logs the outcome of ReadIndex. NotFound and Building are expected
// states and logged at debug level.
func (l *Logger) LogOpen(ctx context.Context, dir string, tombstoned int, err error) {
	switch OutcomeOf(err) {
	case OutcomeReady:
		l.DebugContext(ctx, "index opened",
			"dir", dir,
			"tombstoned", tombstoned,
		)
	case OutcomeNotFound, OutcomeBuilding:
		l.DebugContext(ctx, "index unavailable",
			"dir", dir,
			"outcome", OutcomeOf(err).String(),
		)
	default:
		l.WarnContext(ctx, "index unreadable",
			"dir", dir,
			"error", err,
		)
	}
}

// LogBuild logs the outcome of WriteIndex.
func (l *Logger) LogBuild(ctx context.Context, dir string, stats *BuildStats, err error) {
	switch {
	case err == nil:
		l.InfoContext(ctx, "index built",
			"dir", dir,
			"modules", stats.Modules,
			"skipped", stats.Skipped,
			"keys", stats.Identifiers+stats.Selectors,
			"duration", stats.Duration,
		)
	case OutcomeOf(err) == OutcomeBuilding:
		l.DebugContext(ctx, "index build already in progress",
			"dir", dir,
			"error", err,
		)
	default:
		l.ErrorContext(ctx, "index build failed",
			"dir", dir,
			"error", err,
		)
	}
}
