package session

import (
	"context"

	"bookmart/pkg/domain"
)

type sessionContextKey struct{}

// NewContext stores the restored session for downstream handlers.
func NewContext(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// FromContext returns the session placed by the route guard, or the
// anonymous session when none is present.
func FromContext(ctx context.Context) domain.Session {
	if ctx == nil {
		return domain.Session{}
	}
	sess, _ := ctx.Value(sessionContextKey{}).(domain.Session)
	return sess
}
