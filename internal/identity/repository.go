package identity

import "context"

// Store defines persistence operations for identities. Lookups return
// (nil, nil) when no identity matches; errors are reserved for store
// failures. Insert must enforce cross-identity email uniqueness
// atomically and return ErrEmailTaken on a duplicate.
type Store interface {
	FindByID(ctx context.Context, id string) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByProvider(ctx context.Context, provider, providerUserID string) (*Identity, error)
	Insert(ctx context.Context, ident *Identity) error
	Update(ctx context.Context, ident *Identity) error
	List(ctx context.Context) ([]*Identity, error)
	Search(ctx context.Context, query string) ([]*Identity, error)
}
