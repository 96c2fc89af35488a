package cart

import (
	"context"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
)

// Store is a cart storage policy. Implementations own where lines live and
// which identity they are filed under; the Accumulator owns cart semantics.
type Store interface {
	Backend() enums.CartBackend
	// RequiresSession reports whether guests are rejected.
	RequiresSession() bool
	List(ctx context.Context, sess *identity.Session) ([]Line, error)
	// Find returns nil when no line has key.
	Find(ctx context.Context, sess *identity.Session, key string) (*Line, error)
	// Put inserts line or overwrites the line with the same key.
	Put(ctx context.Context, sess *identity.Session, line Line) error
	Delete(ctx context.Context, sess *identity.Session, key string) error
	Clear(ctx context.Context, sess *identity.Session) error
}

// Incrementer is implemented by stores that can add one unit of a product in
// a single atomic write, inserting line with quantity 1 when it is absent.
type Incrementer interface {
	IncrementOrInsert(ctx context.Context, sess *identity.Session, line Line) error
}
