package evaluator

import (
	"time"

	"github.com/roach88/karmatracker/internal/ledger"
)

// CheatConfig configures the escalating cheat penalty ladder.
type CheatConfig struct {
	// Penalties are indexed by the number of earlier cheats in the window; the
	// last rung repeats once the ladder is exhausted.
	Penalties []float64 `yaml:"penalties" json:"penalties"`

	// Window is the rolling window the count is kept over.
	Window time.Duration `yaml:"window" json:"window"`

	// ResetAfter is the inactivity period after which the count restarts.
	ResetAfter time.Duration `yaml:"reset_after" json:"reset_after"`
}

// DefaultCheatConfig returns the standard ladder.
func DefaultCheatConfig() CheatConfig {
	return CheatConfig{
		Penalties:  []float64{-10, -20, -40, -80},
		Window:     24 * time.Hour,
		ResetAfter: 24 * time.Hour,
	}
}

// maxCheatHistory bounds Record.CheatTimes.
const maxCheatHistory = 64

// penalty returns the rung for a cheat at now and the record with the ladder
// state advanced. The rung is the number of earlier cheats in
// (now-Window, now]; ResetAfter without a cheat clears the history.
func (c CheatConfig) penalty(r ledger.Record, now time.Time) (float64, int, ledger.Record) {
	var recent []time.Time
	if !r.LastCheat.IsZero() && now.Sub(r.LastCheat) <= c.ResetAfter {
		cutoff := now.Add(-c.Window)
		for _, t := range r.CheatTimes {
			if t.After(cutoff) && !t.After(now) {
				recent = append(recent, t)
			}
		}
	}

	rung := min(len(recent), len(c.Penalties)-1)

	recent = append(recent, now)
	if len(recent) > maxCheatHistory {
		recent = recent[len(recent)-maxCheatHistory:]
	}
	r.CheatTimes = recent
	r.CheatCount = len(recent)
	r.LastCheat = now
	return c.Penalties[rung], len(recent), r
}
