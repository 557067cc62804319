package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/karmatracker/internal/ledger"
)

func learningEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := New(DefaultConfig(), ledger.DefaultWeights(), ledger.DefaultRoleThresholds())
	require.NoError(t, err)
	require.NotNil(t, e.Learner())
	return e
}

func TestAdaptiveRewardAmplifiesRepeatedPositive(t *testing.T) {
	e := learningEvaluator(t)
	r := ledger.NewRecord("u1", epoch)

	first := e.AdaptiveReward(r, "helping_peers", 10)
	second := e.AdaptiveReward(r, "helping_peers", 10)

	// Q1 = 0.1 * 28 = 2.8; 0.7*10 + 0.3*2.8
	assert.InDelta(t, 7.84, first, 1e-9)
	assert.Greater(t, second, first)

	q, ok := e.Learner().Value("u1", ledger.RoleLearner, "helping_peers")
	require.True(t, ok)
	assert.InDelta(t, 5.572, q, 1e-9)
}

func TestAdaptiveRewardKeepsSign(t *testing.T) {
	e := learningEvaluator(t)
	r := ledger.NewRecord("u1", epoch)

	for i := 0; i < 20; i++ {
		got := e.AdaptiveReward(r, "lying", -5)
		assert.LessOrEqual(t, got, 0.0)
	}
	q, _ := e.Learner().Value("u1", ledger.RoleLearner, "lying")
	assert.Less(t, q, 0.0)
}

func TestAdaptiveRewardIsPerRole(t *testing.T) {
	e := learningEvaluator(t)
	learner := ledger.NewRecord("u1", epoch)
	mentor := learner
	mentor.Role = ledger.RoleMentor

	e.AdaptiveReward(learner, "charity", 12)
	_, ok := e.Learner().Value("u1", ledger.RoleMentor, "charity")
	assert.False(t, ok)

	e.AdaptiveReward(mentor, "charity", 12)
	_, ok = e.Learner().Value("u1", ledger.RoleMentor, "charity")
	assert.True(t, ok)
}

func TestAdaptiveRewardDisabled(t *testing.T) {
	e := staticEvaluator(t)
	assert.Equal(t, 10.0, e.AdaptiveReward(ledger.NewRecord("u1", epoch), "helping_peers", 10))
}

func TestEvaluateUsesLearner(t *testing.T) {
	e := learningEvaluator(t)
	next, impact, err := e.Evaluate(ledger.NewRecord("u1", epoch), "helping_peers", 1, "", epoch)
	require.NoError(t, err)
	assert.Equal(t, 10.0, impact.BaseReward)
	assert.InDelta(t, 7.84, impact.AdjustedReward, 1e-9)
	assert.InDelta(t, 7.84, next.SevaPoints, 1e-9)
}

func TestQLearnerEvictsLeastRecentlyUsed(t *testing.T) {
	l := NewQLearner(LearningConfig{LearningRate: 0.5, Discount: 0.9, MaxUsers: 2})

	l.Update("u1", ledger.RoleLearner, "a", 1)
	l.Update("u2", ledger.RoleLearner, "a", 1)
	l.Update("u1", ledger.RoleLearner, "a", 1) // refresh u1
	l.Update("u3", ledger.RoleLearner, "a", 1)

	assert.Equal(t, 2, l.Len())
	_, ok := l.Value("u2", ledger.RoleLearner, "a")
	assert.False(t, ok, "u2 was least recently used")
	_, ok = l.Value("u1", ledger.RoleLearner, "a")
	assert.True(t, ok)
}

func TestQLearnerUsesBestValueInRole(t *testing.T) {
	l := NewQLearner(LearningConfig{LearningRate: 1, Discount: 0.5, MaxUsers: 10})

	l.Update("u1", ledger.RoleLearner, "good", 10)
	// alpha = 1: Q = reward + gamma * best = 0 + 0.5 * 10
	got := l.Update("u1", ledger.RoleLearner, "neutral", 0)
	assert.Equal(t, 5.0, got)
}
