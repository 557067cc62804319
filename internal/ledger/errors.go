package ledger

import "errors"

var (
	// ErrUserNotFound reports a user id absent from the store. Surfaced to
	// the caller and never retried internally.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists reports an insert for an id the store already holds.
	ErrUserExists = errors.New("user already exists")
)
