package cli

import (
	"errors"

	"github.com/roach88/karmatracker/internal/audit"
	"github.com/roach88/karmatracker/internal/bridge"
	"github.com/roach88/karmatracker/internal/config"
	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/evaluator"
	"github.com/roach88/karmatracker/internal/ledger"
	"github.com/roach88/karmatracker/internal/lifecycle"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeConfig       = "E002" // Configuration rejected
	ErrCodeUsage        = "E003" // Bad arguments or flags
	ErrCodeNotFound     = "E005" // User or edge not found
	ErrCodeUserExists   = "E006" // User already registered
	ErrCodeInvalidInput = "E010" // Unknown action, bad intensity or amount
	ErrCodeRelationship = "E011" // Invalid debt relationship
	ErrCodeEdgeState    = "E012" // Edge is no longer active
	ErrCodeLifecycle    = "E020" // Transition not allowed in the current state
	ErrCodeIntegrity    = "E030" // Audit chain or snapshot does not verify
	ErrCodeBridge       = "E040" // Bridge delivery failed
)

// ErrorCode maps an error to its CLI error code.
func ErrorCode(err error) string {
	var schemaErr *config.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		return ErrCodeConfig
	case errors.Is(err, ledger.ErrUserNotFound), errors.Is(err, debt.ErrEdgeNotFound), errors.Is(err, audit.ErrEntryNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ledger.ErrUserExists):
		return ErrCodeUserExists
	case errors.Is(err, evaluator.ErrUnknownAction),
		errors.Is(err, evaluator.ErrInvalidIntensity),
		errors.Is(err, evaluator.ErrSelfAffected),
		errors.Is(err, debt.ErrInvalidAmount),
		errors.Is(err, lifecycle.ErrInvalidDelta):
		return ErrCodeInvalidInput
	case errors.Is(err, debt.ErrInvalidRelationship):
		return ErrCodeRelationship
	case errors.Is(err, debt.ErrEdgeNotActive):
		return ErrCodeEdgeState
	case errors.Is(err, lifecycle.ErrThresholdNotReached),
		errors.Is(err, lifecycle.ErrDeathNotRecorded),
		errors.Is(err, lifecycle.ErrSuperseded):
		return ErrCodeLifecycle
	case errors.Is(err, audit.ErrIntegrityViolation):
		return ErrCodeIntegrity
	case bridge.KindOf(err) != "":
		return ErrCodeBridge
	}
	return ErrCodeGeneric
}

// domainError marks a rejected operation as a failure rather than a command
// error: the engine ran and said no.
func domainError(message string, err error) error {
	return WrapExitError(ExitFailure, message, err)
}
