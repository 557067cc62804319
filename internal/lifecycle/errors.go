package lifecycle

import "errors"

var (
	// ErrThresholdNotReached reports TriggerDeath on a record whose
	// Prarabdha is still above the death threshold.
	ErrThresholdNotReached = errors.New("death threshold not reached")

	// ErrDeathNotRecorded reports Rebirth on a record without a pending
	// death.
	ErrDeathNotRecorded = errors.New("no death recorded")

	// ErrSuperseded reports a lifecycle operation on a record that has
	// already been reborn.
	ErrSuperseded = errors.New("record superseded")

	// ErrInvalidDelta reports a non-finite Prarabdha adjustment.
	ErrInvalidDelta = errors.New("invalid prarabdha delta")
)
