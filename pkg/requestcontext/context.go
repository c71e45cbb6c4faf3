// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values set by middleware.
//
// The authenticated caller is stored here only for the transport layer to
// read back; handlers pass it explicitly into services as a domain.Caller.
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithCaller(ctx, domain.Caller{Address: addr})
package requestcontext

import (
	"context"
	"time"

	"escrowd/pkg/domain"
)

type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyCaller      = callerKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Caller retrieves the authenticated caller. The zero Caller means
// unauthenticated.
func Caller(ctx context.Context) domain.Caller {
	if c, ok := ctx.Value(ContextKeyCaller).(domain.Caller); ok {
		return c
	}
	return domain.Caller{}
}

// WithCaller injects the authenticated caller.
func WithCaller(ctx context.Context, c domain.Caller) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, c)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
