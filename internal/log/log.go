// Package log holds the process wide logging setup and the helpers to carry
// a logger through a context.
package log

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey string

const loggerCtxKey ctxKey = "logger"

// Debug is set from the --debug flag. Besides lowering the log level it makes
// the browser drivers keep the html and a screenshot of every visited page.
var Debug bool

func GetLogLevel() slog.Level {
	if Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func InitializeDefaultLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: GetLogLevel()}))
	slog.SetDefault(logger)
}

func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
