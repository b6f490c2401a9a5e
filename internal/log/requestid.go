package log

import "context"

type ctxKey struct{}

// WithRequestID stores the inbound request id so logs and published events
// can be correlated across services.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}
