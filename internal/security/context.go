// Package security carries the authenticated principal of a request.
//
// The principal is stored on the request's context.Context, so its
// lifetime is exactly one request: nothing is kept on pooled handler
// objects or goroutine-shared storage, and nothing has to be cleared
// when the request ends.
package security

import (
	"context"

	"github.com/iliyamo/bearer-auth/internal/model"
)

type principalKey struct{}

// Principal is the security context bound to a request: the
// authenticated user and the authority it acts with.
type Principal struct {
	User      model.User
	Authority model.Role
}

// NewPrincipal binds u with its own role as authority.
func NewPrincipal(u model.User) Principal {
	return Principal{User: u, Authority: u.Role}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal bound to ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
