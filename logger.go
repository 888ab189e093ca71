package biomatch

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/biomatch/modality"
)

// Logger wraps slog.Logger with biomatch-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithModality adds a modality field to the logger.
func (l *Logger) WithModality(m modality.Modality) *Logger {
	return &Logger{
		Logger: l.Logger.With("modality", m.String()),
	}
}

// WithSubject adds a subject_id field to the logger.
func (l *Logger) WithSubject(id int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("subject_id", id),
	}
}

// LogBuild logs an index rebuild.
func (l *Logger) LogBuild(ctx context.Context, m modality.Modality, vectors int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"modality", m.String(),
			"vectors", vectors,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index built",
			"modality", m.String(),
			"vectors", vectors,
			"took", took,
		)
	}
}

// LogSearch logs a match attempt.
func (l *Logger) LogSearch(ctx context.Context, m modality.Modality, candidates, accepted int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"modality", m.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"modality", m.String(),
			"candidates", candidates,
			"accepted", accepted,
		)
	}
}

// LogPublish logs an artifact upload.
func (l *Logger) LogPublish(ctx context.Context, m modality.Modality, key string, err error) {
	if err != nil {
		l.WarnContext(ctx, "index publish failed",
			"modality", m.String(),
			"key", key,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index published",
			"modality", m.String(),
			"key", key,
		)
	}
}
