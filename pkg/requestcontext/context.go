// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Context keys and getter/setter functions live here so that values set by
// middleware (driver ID, session ID, request ID) can be consumed by services
// without the services importing net/http.
package requestcontext

import (
	"context"
)

// Context key types (unexported for encapsulation).
type (
	driverIDKey  struct{}
	sessionIDKey struct{}
	requestIDKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyDriverID  = driverIDKey{}
	ContextKeySessionID = sessionIDKey{}
	ContextKeyRequestID = requestIDKey{}
)

// WithDriverID returns a context carrying the authenticated driver's ID.
func WithDriverID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyDriverID, id)
}

// DriverID returns the authenticated driver's ID, or "" if absent.
func DriverID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyDriverID).(string)
	return v
}

// WithSessionID returns a context carrying the current session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, id)
}

// SessionID returns the current session ID, or "" if absent.
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeySessionID).(string)
	return v
}

// WithRequestID returns a context carrying the request correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// RequestID returns the request correlation ID, or "" if absent.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyRequestID).(string)
	return v
}
