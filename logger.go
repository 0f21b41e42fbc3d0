package spatio

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/spatio/core"
)

// Logger wraps slog.Logger with spatio-specific context.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithNamespace adds a namespace field to the logger.
func (l *Logger) WithNamespace(ns core.Namespace) *Logger {
	return &Logger{
		Logger: l.Logger.With("namespace", string(ns)),
	}
}

// WithObjectID adds an object id field to the logger.
func (l *Logger) WithObjectID(id core.ObjectId) *Logger {
	return &Logger{
		Logger: l.Logger.With("object_id", string(id)),
	}
}

// LogUpsert logs an upsert operation.
func (l *Logger) LogUpsert(ctx context.Context, ns core.Namespace, id core.ObjectId, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upsert failed",
			"namespace", string(ns),
			"object_id", string(id),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "upsert completed",
			"namespace", string(ns),
			"object_id", string(id),
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, ns core.Namespace, id core.ObjectId, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"namespace", string(ns),
			"object_id", string(id),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"namespace", string(ns),
			"object_id", string(id),
		)
	}
}

// LogQuery logs a spatial query operation.
func (l *Logger) LogQuery(ctx context.Context, kind string, ns core.Namespace, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"kind", kind,
			"namespace", string(ns),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"kind", kind,
			"namespace", string(ns),
			"results", resultsFound,
		)
	}
}

// LogFlush logs a write-buffer flush operation.
func (l *Logger) LogFlush(ctx context.Context, recordsFlushed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"records", recordsFlushed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "flush completed",
			"records", recordsFlushed,
		)
	}
}

// LogRecovery logs a log-replay recovery operation.
func (l *Logger) LogRecovery(ctx context.Context, recordsReplayed int, truncated bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "recovery failed",
			"records_replayed", recordsReplayed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "recovery completed",
			"records_replayed", recordsReplayed,
			"truncated_tail", truncated,
		)
	}
}

// LogCompaction logs a cold-state segment compaction operation.
func (l *Logger) LogCompaction(ctx context.Context, bytesBefore, bytesAfter int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compaction failed",
			"bytes_before", bytesBefore,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "compaction completed",
			"bytes_before", bytesBefore,
			"bytes_after", bytesAfter,
		)
	}
}
