package middleware

import (
	"context"

	"github.com/turbovets/taskhub/pkg/auth"
	"github.com/turbovets/taskhub/pkg/contextkeys"
)

// WithPrincipal stores the authenticated user in the context.
func WithPrincipal(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, contextkeys.PrincipalKey, user)
}

// Principal returns the authenticated user from the context, or nil when the
// request did not pass through AuthMiddleware.
func Principal(ctx context.Context) *auth.User {
	if user, ok := ctx.Value(contextkeys.PrincipalKey).(*auth.User); ok {
		return user
	}
	return nil
}
