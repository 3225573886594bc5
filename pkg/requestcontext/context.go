// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, personID, role)
package requestcontext

import (
	"context"
	"time"

	id "btoflow/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	actorIDKey     struct{}
	actorRoleKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Actor retrieves the authenticated person id from the context.
// Returns the zero value if not set.
func Actor(ctx context.Context) id.PersonID {
	if p, ok := ctx.Value(actorIDKey{}).(id.PersonID); ok {
		return p
	}
	return ""
}

// ActorRole retrieves the authenticated role from the context.
func ActorRole(ctx context.Context) id.Role {
	if r, ok := ctx.Value(actorRoleKey{}).(id.Role); ok {
		return r
	}
	return ""
}

// WithActor injects the authenticated identity into the context.
func WithActor(ctx context.Context, person id.PersonID, role id.Role) context.Context {
	ctx = context.WithValue(ctx, actorIDKey{}, person)
	return context.WithValue(ctx, actorRoleKey{}, role)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, seeding, tests
// that don't care). Project windows and registration expiry all read time
// through this so tests can pin "today".
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
