package debt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRelationship is matched by every *RelationshipError.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrEdgeNotFound reports an unknown edge id.
	ErrEdgeNotFound = errors.New("debt edge not found")

	// ErrEdgeNotActive reports a repay or transfer on a repaid or
	// transferred edge.
	ErrEdgeNotActive = errors.New("debt edge not active")

	// ErrInvalidAmount reports a non-positive or non-finite repayment.
	ErrInvalidAmount = errors.New("invalid amount")
)

// RelationshipError explains why a debt edge could not be created or moved.
type RelationshipError struct {
	DebtorID   string
	ReceiverID string
	Reason     string
}

func (e *RelationshipError) Error() string {
	return fmt.Sprintf("invalid relationship %s -> %s: %s", e.DebtorID, e.ReceiverID, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidRelationship) hold for any
// RelationshipError.
func (e *RelationshipError) Is(target error) bool {
	return target == ErrInvalidRelationship
}

// IsRelationshipError reports whether err wraps a *RelationshipError.
func IsRelationshipError(err error) bool {
	var re *RelationshipError
	return errors.As(err, &re)
}
