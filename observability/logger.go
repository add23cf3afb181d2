package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance
var Logger *slog.Logger

type requestIDKey struct{}

// InitLogger initializes the global logger at info level.
// Production uses JSON; development uses text.
func InitLogger(production bool) {
	InitLoggerWithLevel(production, slog.LevelInfo)
}

// InitLoggerWithLevel initializes the logger on stdout with a specific level
func InitLoggerWithLevel(production bool, level slog.Level) {
	InitLoggerTo(os.Stdout, production, level)
}

// InitLoggerTo initializes the logger on w. The CLI logs to stderr so its
// tables on stdout stay clean.
func InitLoggerTo(w io.Writer, production bool, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
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

func logger() *slog.Logger {
	if Logger == nil {
		InitLogger(false)
	}
	return Logger
}

// ContextWithRequestID tags ctx so loggers built from it carry request_id
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by ContextWithRequestID, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithContext returns a logger carrying the request id found in ctx
func WithContext(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return logger().With("request_id", id)
	}
	return logger()
}

func Info(msg string, args ...any)  { logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { logger().Warn(msg, args...) }
func Error(msg string, args ...any) { logger().Error(msg, args...) }
func Debug(msg string, args ...any) { logger().Debug(msg, args...) }

// Fatal logs an error message and exits
func Fatal(msg string, args ...any) {
	logger().Error(msg, args...)
	os.Exit(1)
}

// WithTicker returns a logger with ticker field
func WithTicker(ticker string) *slog.Logger {
	return logger().With("ticker", ticker)
}

// WithProvider returns a logger with the external provider name attached
func WithProvider(provider string) *slog.Logger {
	return logger().With("provider", provider)
}

// WithError returns a logger with error field
func WithError(err error) *slog.Logger {
	return logger().With("error", err)
}
