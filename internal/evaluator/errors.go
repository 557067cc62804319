package evaluator

import "errors"

var (
	// ErrUnknownAction reports an action name missing from the action table.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidIntensity reports a negative or non-finite intensity.
	ErrInvalidIntensity = errors.New("invalid intensity")

	// ErrSelfAffected reports a negative action naming its own actor as the
	// affected user.
	ErrSelfAffected = errors.New("affected user must differ from actor")
)
