package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	initOnce   sync.Once
	logger     *slog.Logger
	accessOnce sync.Once
	accessLog  *zap.Logger
	exitFunc   = os.Exit
)

// L returns the shared application logger, initializing it on first use.
func L() *slog.Logger {
	initOnce.Do(func() {
		logger = slog.New(newHandler())
	})
	return logger
}

func newHandler() slog.Handler {
	level := parseLevel(os.Getenv("ADSCOPE_LOG_LEVEL"))
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: strings.EqualFold(os.Getenv("ADSCOPE_LOG_SOURCE"), "true"),
	}

	switch strings.ToLower(os.Getenv("ADSCOPE_LOG_FORMAT")) {
	case "json", "structured":
		return slog.NewJSONHandler(os.Stdout, opts)
	default:
		// Text handler writes to stderr so JSON output remains clean if enabled later.
		return slog.NewTextHandler(os.Stderr, opts)
	}
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(value) {
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

// With returns a child logger with additional attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Fatal logs the message at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	L().Error(msg, args...)
	exitFunc(1)
}

// Access returns the zap logger consumed by the HTTP request logging middleware.
func Access() *zap.Logger {
	accessOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.DisableStacktrace = true
		built, err := cfg.Build()
		if err != nil {
			built = zap.NewNop()
		}
		accessLog = built
	})
	return accessLog
}
