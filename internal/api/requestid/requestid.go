// Package requestid threads a per-request id through the context so
// handlers and log records reference the same request.
package requestid

import "context"

type ctxKey struct{}

var requestIDKey ctxKey

// InjectRequestID stores the request id in the context.
func InjectRequestID(ctx context.Context, requestID uint64) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ExtractRequestID returns the request id carried by the context, or 0
// when there is none.
func ExtractRequestID(ctx context.Context) uint64 {
	if v, ok := ctx.Value(requestIDKey).(uint64); ok {
		return v
	}
	return 0
}
