package evaluator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/karmatracker/internal/ledger"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func staticEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Learning.Enabled = false
	e, err := New(cfg, ledger.DefaultWeights(), ledger.DefaultRoleThresholds())
	require.NoError(t, err)
	return e
}

func TestEvaluatePositiveAction(t *testing.T) {
	e := staticEvaluator(t)
	r := ledger.NewRecord("u1", epoch)

	next, impact, err := e.Evaluate(r, "helping_peers", 2, "", epoch)
	require.NoError(t, err)

	assert.Equal(t, 20.0, next.SevaPoints)
	assert.Equal(t, 20.0, next.Dridha)
	assert.Equal(t, 20.0, next.Sanchita)
	assert.Equal(t, 20.0, next.Prarabdha)
	assert.Equal(t, 0.0, next.Adridha)

	assert.True(t, impact.Positive)
	assert.Equal(t, "seva", impact.Token)
	assert.Equal(t, 20.0, impact.BaseReward)
	assert.Equal(t, 20.0, impact.AdjustedReward)
	assert.InDelta(t, 56.0, impact.ScoreAfter, 1e-9)
	assert.Nil(t, impact.Debt)
}

func TestEvaluateDefaultIntensity(t *testing.T) {
	e := staticEvaluator(t)
	next, impact, err := e.Evaluate(ledger.NewRecord("u1", epoch), "meditation", 0, "", epoch)
	require.NoError(t, err)
	assert.Equal(t, 1.0, impact.Intensity)
	assert.Equal(t, 8.0, next.PunyaPoints)
}

func TestEvaluateNegativeActionCreatesDebt(t *testing.T) {
	e := staticEvaluator(t)
	r := ledger.NewRecord("u1", epoch)

	next, impact, err := e.Evaluate(r, "harming_others", 1, "u2", epoch)
	require.NoError(t, err)

	assert.Equal(t, 30.0, next.PaapTokens.Maha)
	assert.Equal(t, 30.0, next.Adridha)
	assert.Equal(t, -30.0, next.Prarabdha)
	assert.Equal(t, 0.0, next.Sanchita)
	assert.InDelta(t, 9.0, next.Rnanubandhan.Major, 1e-9)

	require.NotNil(t, impact.Debt)
	assert.Equal(t, "u2", impact.Debt.ReceiverID)
	assert.Equal(t, ledger.SeverityMajor, impact.Debt.Severity)
	assert.InDelta(t, 9.0, impact.Debt.Amount, 1e-9)
	assert.Equal(t, "harming_others", impact.Debt.ActionType)
	// 0.3*30 - 30 - 4*9
	assert.InDelta(t, -57.0, impact.ScoreAfter, 1e-9)
}

func TestEvaluateNegativeWithoutAffectedHasNoDebt(t *testing.T) {
	e := staticEvaluator(t)
	next, impact, err := e.Evaluate(ledger.NewRecord("u1", epoch), "lying", 1, "", epoch)
	require.NoError(t, err)
	assert.Equal(t, 5.0, next.PaapTokens.Minor)
	assert.Equal(t, 0.0, next.Rnanubandhan.Total())
	assert.Nil(t, impact.Debt)
}

func TestEvaluateErrorsLeaveRecordUnchanged(t *testing.T) {
	e := staticEvaluator(t)
	r := ledger.NewRecord("u1", epoch)
	r.SevaPoints = 3

	tests := []struct {
		name      string
		action    string
		intensity float64
		affected  string
		want      error
	}{
		{"unknown action", "teleport", 1, "", ErrUnknownAction},
		{"negative intensity", "charity", -1, "", ErrInvalidIntensity},
		{"self affected", "lying", 1, "u1", ErrSelfAffected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _, err := e.Evaluate(r, tt.action, tt.intensity, tt.affected, epoch)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.Equal(t, r, next)
		})
	}
}

func TestEvaluatePromotesRole(t *testing.T) {
	e := staticEvaluator(t)
	next, _, err := e.Evaluate(ledger.NewRecord("u1", epoch), "selfless_service", 10, "", epoch)
	require.NoError(t, err)
	// 150 * 2.8 = 420 -> volunteer
	assert.Equal(t, ledger.RoleVolunteer, next.Role)
}

func TestCheatLadderEscalates(t *testing.T) {
	e := staticEvaluator(t)
	r := ledger.NewRecord("u1", epoch)

	want := []float64{-10, -20, -40, -80, -80}
	for i, penalty := range want {
		var impact Impact
		var err error
		r, impact, err = e.Evaluate(r, CheatAction, 1, "", epoch.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, penalty, impact.BaseReward, "cheat #%d", i+1)
		assert.Equal(t, i+1, impact.CheatCount)
	}
	assert.Equal(t, 230.0, r.PaapTokens.Medium)
}

func TestCheatLadderResetsAfterInactivity(t *testing.T) {
	e := staticEvaluator(t)
	r := ledger.NewRecord("u1", epoch)

	r, _, err := e.Evaluate(r, CheatAction, 1, "", epoch)
	require.NoError(t, err)
	r, impact, err := e.Evaluate(r, CheatAction, 1, "", epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, -20.0, impact.BaseReward)

	_, impact, err = e.Evaluate(r, CheatAction, 1, "", epoch.Add(26*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, -10.0, impact.BaseReward)
	assert.Equal(t, 1, impact.CheatCount)
}

func TestCheatLadderRollingWindow(t *testing.T) {
	e := staticEvaluator(t)
	r := ledger.NewRecord("u1", epoch)

	r, _, _ = e.Evaluate(r, CheatAction, 1, "", epoch)
	r, impact, _ := e.Evaluate(r, CheatAction, 1, "", epoch.Add(20*time.Hour))
	assert.Equal(t, -20.0, impact.BaseReward)

	// The cheat at +0h has left the window; the one at +20h has not.
	r, impact, _ = e.Evaluate(r, CheatAction, 1, "", epoch.Add(40*time.Hour))
	assert.Equal(t, -20.0, impact.BaseReward)
	assert.Equal(t, 2, impact.CheatCount)
	assert.Equal(t, []time.Time{epoch.Add(20 * time.Hour), epoch.Add(40 * time.Hour)}, r.CheatTimes)
}

func TestCheatLadderHoldsUnderSteadyCheating(t *testing.T) {
	e := staticEvaluator(t)
	r := ledger.NewRecord("u1", epoch)

	// One cheat every 5h: the window always holds the previous four.
	want := []float64{-10, -20, -40, -80, -80, -80, -80, -80}
	for i, penalty := range want {
		var impact Impact
		var err error
		r, impact, err = e.Evaluate(r, CheatAction, 1, "", epoch.Add(time.Duration(5*i)*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, penalty, impact.BaseReward, "cheat at +%dh", 5*i)
	}
	assert.Len(t, r.CheatTimes, 5)
}

func TestCheatHistoryIsBounded(t *testing.T) {
	e := staticEvaluator(t)
	r := ledger.NewRecord("u1", epoch)
	for i := 0; i < maxCheatHistory+10; i++ {
		r, _, _ = e.Evaluate(r, CheatAction, 1, "", epoch.Add(time.Duration(i)*time.Second))
	}
	assert.Len(t, r.CheatTimes, maxCheatHistory)
	assert.Equal(t, epoch.Add(time.Duration(maxCheatHistory+9)*time.Second), r.CheatTimes[maxCheatHistory-1])
}

func TestCustomActionTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Learning.Enabled = false
	cfg.Actions = map[string]ActionConfig{
		"gardening": {Base: 3, Token: "seva"},
		"lying":     {Base: -2, Token: "paap", Tier: "minor"},
	}
	e, err := New(cfg, ledger.DefaultWeights(), ledger.DefaultRoleThresholds())
	require.NoError(t, err)

	a, ok := e.Action("gardening")
	require.True(t, ok)
	assert.Equal(t, ledger.Seva, a.Token)

	lying, _ := e.Action("lying")
	assert.Equal(t, -2.0, lying.Base)
}

func TestCompileActionsRejectsBadRows(t *testing.T) {
	bad := []map[string]ActionConfig{
		{"x": {Base: 1, Token: "karma"}},
		{"x": {Base: -1, Token: "paap"}},
		{"x": {Base: 1, Token: "seva", Tier: "minor"}},
		{"x": {Base: -1, Token: "seva"}},
		{"x": {Base: 1, Token: "paap", Tier: "minor"}},
	}
	for _, rows := range bad {
		_, err := CompileActions(rows)
		assert.Error(t, err, "%+v", rows)
	}
}
