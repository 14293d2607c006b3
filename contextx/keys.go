// Package contextx carries request-scoped values used by the HTTP layer to
// annotate responses: a request ID and a per-request tally of cache and
// upstream activity.
package contextx

import "context"

// contextKey is an unexported type used as context key to avoid collisions
// with keys defined in other packages.
type contextKey int

const (
	requestIDKey contextKey = iota
	tallyKey
)

// WithRequestID stores a request ID on the context. The cache and upstream
// layers attach it to their degraded-path log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID carried by ctx, or "" when
// none was set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
