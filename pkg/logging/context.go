package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const (
	loggerKey contextKey = iota
	buildIDKey
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithBuildID tags every log line of one store rebuild with its build id.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	ctx = context.WithValue(ctx, buildIDKey, buildID)
	return WithField(ctx, "build_id", buildID)
}

// BuildID extracts the build id from context.
func BuildID(ctx context.Context) string {
	if id, ok := ctx.Value(buildIDKey).(string); ok {
		return id
	}
	return ""
}

// WithField adds a single field to the logger in the context.
func WithField(ctx context.Context, key string, value any) context.Context {
	logger := addField(FromContext(ctx).With(), key, value).Logger()
	return WithLogger(ctx, &logger)
}

// WithGroup adds the entity group (view, category, weakness, reference).
func WithGroup(ctx context.Context, group string) context.Context {
	return WithField(ctx, "group", group)
}

// WithEntity adds an entity id.
func WithEntity(ctx context.Context, id string) context.Context {
	return WithField(ctx, "entity_id", id)
}

// WithSource adds the catalog source, usually a URL or file path.
func WithSource(ctx context.Context, source string) context.Context {
	return WithField(ctx, "source", source)
}

// WithOperation adds operation context to the logger.
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithField(ctx, "operation", operation)
}
