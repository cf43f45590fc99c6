// Package identity adapts the account handlers to whatever sits in front of
// this service verifying the JWT cookie -- an API gateway or sidecar, out of
// scope for this module. It trusts two headers that authenticating layer is
// expected to set once it has verified the cookie, never touching the JWT
// itself.
package identity

import (
	"context"
	"net/http"

	"github.com/shamank/rpc-gateway/internal/domain/ports"
)

const (
	emailHeader  = "X-Authenticated-Email"
	walletHeader = "X-Authenticated-Wallet"
)

type contextKey struct{}

// HeaderResolver implements ports.IdentityResolver by reading the identity
// an upstream auth layer already verified and attached to the request.
type HeaderResolver struct{}

// NewHeaderResolver constructs a HeaderResolver.
func NewHeaderResolver() *HeaderResolver {
	return &HeaderResolver{}
}

// Middleware extracts the identity headers and attaches them to the request
// context, so downstream handlers never touch http.Request directly.
func (r *HeaderResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		email := req.Header.Get(emailHeader)
		if email == "" {
			next.ServeHTTP(w, req)
			return
		}

		id := &ports.Identity{Email: email}
		if wallet := req.Header.Get(walletHeader); wallet != "" {
			id.Wallet = &wallet
		}

		ctx := context.WithValue(req.Context(), contextKey{}, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// Identity satisfies ports.IdentityResolver, recovering the identity
// Middleware attached to ctx.
func (r *HeaderResolver) Identity(ctx context.Context) (*ports.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*ports.Identity)
	return id, ok
}

var _ ports.IdentityResolver = (*HeaderResolver)(nil)
