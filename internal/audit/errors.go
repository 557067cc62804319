package audit

import (
	"errors"
	"fmt"
)

// ErrIntegrityViolation is matched by every *IntegrityError.
var ErrIntegrityViolation = errors.New("integrity violation")

// IntegrityError reports a verification mismatch. It is never repaired
// automatically.
type IntegrityError struct {
	// Index is the ledger index of the offending entry, or the snapshot's
	// from_index for snapshot failures.
	Index int64

	// Field names what did not match, for example "entry_hash".
	Field string

	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	if e.Expected != "" || e.Actual != "" {
		return fmt.Sprintf("integrity violation at index %d: %s mismatch (expected %s, got %s)", e.Index, e.Field, e.Expected, e.Actual)
	}
	return fmt.Sprintf("integrity violation at index %d: %s", e.Index, e.Field)
}

// Is makes errors.Is(err, ErrIntegrityViolation) hold.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

// IsIntegrityError reports whether err wraps an *IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// ErrEntryNotFound reports a ledger index beyond the sink's tail.
var ErrEntryNotFound = errors.New("audit entry not found")
