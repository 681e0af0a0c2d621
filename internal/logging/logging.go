// Package logging carries a request-scoped *slog.Logger through a context so
// handlers and services can log with the request attributes already attached.
package logging

import (
	"context"
	"log/slog"
)

// loggerKey is unexported so only this package can store or look up the
// logger value.
type loggerKey struct{}

// ContextWithLogger attaches logger to ctx. Passing a nil context or a nil
// logger leaves ctx unchanged.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached by ContextWithLogger, or nil when
// the context carries none. Callers that need a usable logger must handle the
// nil case themselves.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}
