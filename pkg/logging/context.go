package logging

import (
	"context"

	"github.com/google/uuid"
)

type correlationIDKey struct{}

// WithCorrelationID attaches the provided correlation ID to the context so
// downstream components can emit correlated logs.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID extracts a correlation ID from context. It returns an empty
// string when none has been set.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewCorrelationID produces a new UUIDv4 string. Host services should call it
// once per inbound request.
func NewCorrelationID() string {
	return uuid.NewString()
}
