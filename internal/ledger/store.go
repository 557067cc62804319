package ledger

import "context"

// Store is the user-record collaborator. Any key-value or document store
// satisfies it; the engine never assumes a specific database.
//
// GetUser and PutUser return an error wrapping ErrUserNotFound for unknown
// ids. InsertUser returns an error wrapping ErrUserExists for known ids.
// SupersedeUser replaces prev and inserts succ in one unit: either both are
// stored or neither is.
type Store interface {
	GetUser(ctx context.Context, userID string) (Record, error)
	PutUser(ctx context.Context, r Record) error
	InsertUser(ctx context.Context, r Record) error
	SupersedeUser(ctx context.Context, prev, succ Record) error
}
