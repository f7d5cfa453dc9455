package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/lexhq/trustledger/internal/domain"
)

// ContextKey is the type for context keys set by the HTTP layer.
type ContextKey string

// RequestIDKey is the context key for request IDs.
const RequestIDKey ContextKey = "request_id"

// Logger wraps slog.Logger and knows how to pull request metadata
// and the acting identity out of a context. Every audit-relevant log
// line carries actor_id so log output can be correlated with the
// audit trail.
type Logger struct {
	*slog.Logger
}

// New creates a structured logger writing to stdout.
func New(level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// WithContext returns a logger annotated with the request ID and
// actor carried by ctx, when present.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	logger := l.Logger

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		logger = logger.With("request_id", requestID)
	}

	if actor, ok := domain.ActorFromContext(ctx); ok && actor.ID != "" {
		logger = logger.With("actor_id", actor.ID)
	}

	return logger
}

// ParseLevel maps a config level string to a slog level. Unknown
// values fall back to info.
func ParseLevel(level string) slog.Level {
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
