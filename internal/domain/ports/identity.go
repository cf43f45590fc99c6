package ports

import "context"

// Identity is the authenticated principal the JWT-cookie middleware
// (external collaborator, out of scope) attaches to a request: an email and
// an optional wallet address bound via SIWE. The core only ever reads these
// two fields.
type Identity struct {
	Email  string
	Wallet *string
}

// IdentityResolver recovers the Identity already established by the
// out-of-scope JWT verification middleware. The core depends on this
// interface only, never on JWT minting/verification itself.
type IdentityResolver interface {
	Identity(ctx context.Context) (*Identity, bool)
}
