package evaluator

import (
	"slices"
	"strings"

	"github.com/roach88/karmatracker/internal/ledger"
)

// GuidanceConfig holds the ratios the guidance rules compare against.
type GuidanceConfig struct {
	// StabilizeRatio is the |Adridha| / Dridha ratio above which stabilizing
	// practices are recommended.
	StabilizeRatio float64 `yaml:"stabilize_ratio" json:"stabilize_ratio"`

	// WarningFraction of DeathThreshold at which Prarabdha triggers a warning.
	WarningFraction float64 `yaml:"warning_fraction" json:"warning_fraction"`

	// DeathThreshold mirrors the lifecycle death threshold.
	DeathThreshold float64 `yaml:"-" json:"-"`
}

// DefaultGuidanceConfig returns the standard rule thresholds.
func DefaultGuidanceConfig() GuidanceConfig {
	return GuidanceConfig{
		StabilizeRatio:  1.5,
		WarningFraction: 0.5,
		DeathThreshold:  -100,
	}
}

// Recommendation is one corrective suggestion.
type Recommendation struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Practices []string `json:"practices"`
}

type rule struct {
	code      string
	message   string
	practices []string
	match     func(r ledger.Record, cfg GuidanceConfig) bool
}

var rules = []rule{
	{
		code:      "atonement",
		message:   "Maha paap is outstanding; seek forgiveness and make amends.",
		practices: []string{"prayaschitta", "apology", "restitution"},
		match: func(r ledger.Record, _ GuidanceConfig) bool {
			return r.PaapTokens.Maha > 0
		},
	},
	{
		code:      "balance",
		message:   "Transgressions outweigh positive conduct.",
		practices: []string{"daily_seva", "truthful_speech"},
		match: func(r ledger.Record, _ GuidanceConfig) bool {
			return r.PaapTokens.Total() > r.TotalPositive()
		},
	},
	{
		code:      "practice_seva",
		message:   "Knowledge without service; add acts of seva.",
		practices: []string{"helping_peers", "selfless_service"},
		match: func(r ledger.Record, _ GuidanceConfig) bool {
			return r.SevaPoints == 0 && r.DharmaPoints > 0
		},
	},
	{
		code:      "prarabdha_warning",
		message:   "Active karma is approaching the death threshold.",
		practices: []string{"meditation", "charity"},
		match: func(r ledger.Record, cfg GuidanceConfig) bool {
			return cfg.DeathThreshold < 0 && r.Prarabdha <= cfg.DeathThreshold*cfg.WarningFraction
		},
	},
	{
		code:      "resolve_debts",
		message:   "Unresolved obligations to others remain.",
		practices: []string{"repay_debt", "seek_reconciliation"},
		match: func(r ledger.Record, _ GuidanceConfig) bool {
			return r.Rnanubandhan.Total() > 0
		},
	},
	{
		code:      "stabilize",
		message:   "Recent karma is volatile relative to reinforced karma.",
		practices: []string{"meditation", "consistent_practice"},
		match: func(r ledger.Record, cfg GuidanceConfig) bool {
			volatile := r.Adridha
			if volatile <= 0 {
				return false
			}
			if r.Dridha <= 0 {
				return true
			}
			return volatile/r.Dridha > cfg.StabilizeRatio
		},
	},
}

// CorrectiveGuidance evaluates every rule against r. The result is sorted by
// code and depends only on r and cfg.
func CorrectiveGuidance(r ledger.Record, cfg GuidanceConfig) []Recommendation {
	out := []Recommendation{}
	for _, rl := range rules {
		if rl.match(r, cfg) {
			out = append(out, Recommendation{
				Code:      rl.code,
				Message:   rl.message,
				Practices: slices.Clone(rl.practices),
			})
		}
	}
	slices.SortFunc(out, func(a, b Recommendation) int {
		return strings.Compare(a.Code, b.Code)
	})
	return out
}
