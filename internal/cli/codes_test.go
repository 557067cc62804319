package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/karmatracker/internal/audit"
	"github.com/roach88/karmatracker/internal/bridge"
	"github.com/roach88/karmatracker/internal/config"
	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/evaluator"
	"github.com/roach88/karmatracker/internal/ledger"
	"github.com/roach88/karmatracker/internal/lifecycle"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), ErrCodeGeneric},
		{"schema", &config.SchemaError{Problems: []string{"lifecycle.death_threshold"}}, ErrCodeConfig},
		{"user_not_found", fmt.Errorf("get alice: %w", ledger.ErrUserNotFound), ErrCodeNotFound},
		{"edge_not_found", debt.ErrEdgeNotFound, ErrCodeNotFound},
		{"user_exists", ledger.ErrUserExists, ErrCodeUserExists},
		{"unknown_action", evaluator.ErrUnknownAction, ErrCodeInvalidInput},
		{"bad_delta", lifecycle.ErrInvalidDelta, ErrCodeInvalidInput},
		{"relationship", &debt.RelationshipError{DebtorID: "a", ReceiverID: "a", Reason: "self-referential"}, ErrCodeRelationship},
		{"edge_state", debt.ErrEdgeNotActive, ErrCodeEdgeState},
		{"superseded", lifecycle.ErrSuperseded, ErrCodeLifecycle},
		{"integrity", &audit.IntegrityError{Index: 3, Field: "entry_hash"}, ErrCodeIntegrity},
		{"bridge", &bridge.Error{Kind: bridge.KindAckTimeout}, ErrCodeBridge},
		{"wrapped", domainError("action rejected", evaluator.ErrInvalidIntensity), ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestDomainErrorExitCode(t *testing.T) {
	err := domainError("death not recorded", lifecycle.ErrThresholdNotReached)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, lifecycle.ErrThresholdNotReached)
}
