package logger

import "context"

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	loggerKey    contextKey = "pcompress.logger"
	requestIDKey contextKey = "pcompress.request_id"
	chainIDKey   contextKey = "pcompress.chain_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithChainID records the chain a request works on.
func WithChainID(ctx context.Context, chainID string) context.Context {
	return context.WithValue(ctx, chainIDKey, chainID)
}

// ChainIDFromContext extracts the chain ID from context.
func ChainIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(chainIDKey).(string); ok {
		return id
	}
	return ""
}

// L is FromContext enriched with the request ID and chain ID found in
// the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		l = l.With("request_id", reqID)
	}
	if chainID := ChainIDFromContext(ctx); chainID != "" {
		l = l.With("chain_id", chainID)
	}
	return l
}
