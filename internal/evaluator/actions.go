package evaluator

import (
	"fmt"
	"slices"

	"github.com/roach88/karmatracker/internal/ledger"
)

// CheatAction is the action name evaluated through the penalty ladder.
const CheatAction = "cheat"

// ActionConfig is the configured form of an action table row.
type ActionConfig struct {
	Base  float64 `yaml:"base" json:"base"`
	Token string  `yaml:"token" json:"token"`
	Tier  string  `yaml:"tier,omitempty" json:"tier,omitempty"`
}

// Action is a resolved action table row. Token is fixed at load time, so a
// bad token path is a configuration error rather than a runtime one.
type Action struct {
	Name  string
	Base  float64
	Token ledger.Token
}

// Positive reports whether the action rewards rather than penalizes.
func (a Action) Positive() bool {
	return a.Token.Kind != ledger.TokenPaap
}

// DefaultActions returns the built-in action table.
func DefaultActions() map[string]ActionConfig {
	return map[string]ActionConfig{
		"completing_lessons": {Base: 5, Token: "dharma"},
		"truthful_speech":    {Base: 6, Token: "dharma"},
		"helping_peers":      {Base: 10, Token: "seva"},
		"selfless_service":   {Base: 15, Token: "seva"},
		"meditation":         {Base: 8, Token: "punya"},
		"charity":            {Base: 12, Token: "punya"},
		"lying":              {Base: -5, Token: "paap", Tier: "minor"},
		"breaking_promise":   {Base: -8, Token: "paap", Tier: "minor"},
		"disrespect_guru":    {Base: -15, Token: "paap", Tier: "medium"},
		"harming_others":     {Base: -30, Token: "paap", Tier: "maha"},
		CheatAction:          {Base: -10, Token: "paap", Tier: "medium"},
	}
}

// CompileActions resolves configured rows into Actions. Positive tokens must
// carry a positive base and paap tokens a negative one.
func CompileActions(rows map[string]ActionConfig) (map[string]Action, error) {
	out := make(map[string]Action, len(rows))
	names := make([]string, 0, len(rows))
	for name := range rows {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		row := rows[name]
		kind, err := ledger.ParseTokenKind(row.Token)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", name, err)
		}
		tok := ledger.Token{Kind: kind}
		if kind == ledger.TokenPaap {
			tier, err := ledger.ParsePaapTier(row.Tier)
			if err != nil {
				return nil, fmt.Errorf("action %q: %w", name, err)
			}
			tok.Tier = tier
		} else if row.Tier != "" {
			return nil, fmt.Errorf("action %q: tier only applies to paap tokens", name)
		}

		a := Action{Name: name, Base: row.Base, Token: tok}
		if a.Positive() && row.Base <= 0 {
			return nil, fmt.Errorf("action %q: %s reward must be positive", name, tok)
		}
		if !a.Positive() && row.Base >= 0 {
			return nil, fmt.Errorf("action %q: paap penalty must be negative", name)
		}
		out[name] = a
	}
	return out, nil
}
