package notes

import (
	"context"
	"errors"
)

// ErrNotFound is returned for notes that do not exist or belong to another user.
var ErrNotFound = errors.New("notes: not found")

// Repository is the persistence contract for notes. All lookups are scoped to
// an owner, so a note owned by someone else behaves exactly like a missing one.
type Repository interface {
	Insert(ctx context.Context, n *Note) error
	GetOwned(ctx context.Context, userID, id string) (*Note, error)
	ListByUser(ctx context.Context, userID string) ([]*Note, error)
	Update(ctx context.Context, n *Note) error
	DeleteOwned(ctx context.Context, userID, id string) error
}
