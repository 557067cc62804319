package ledger

import (
	"math"
	"time"
)

// DecayRates are per-day exponential decay rates. Dridha and Sanchita have
// no rate: reinforced and lifetime karma never fade.
type DecayRates struct {
	PaapMinor  float64 `yaml:"paap_minor" json:"paap_minor"`
	PaapMedium float64 `yaml:"paap_medium" json:"paap_medium"`
	PaapMaha   float64 `yaml:"paap_maha" json:"paap_maha"`
	Adridha    float64 `yaml:"adridha" json:"adridha"`
}

// DefaultDecayRates returns the standard rates; minor transgressions fade
// fastest.
func DefaultDecayRates() DecayRates {
	return DecayRates{
		PaapMinor:  0.05,
		PaapMedium: 0.02,
		PaapMaha:   0.01,
		Adridha:    0.03,
	}
}

// ApplyDecay fades Paap tiers and Adridha by exp(-rate * elapsedDays) since
// r.LastDecay and moves LastDecay to now.
//
// A now that is not after LastDecay leaves the record unchanged, which makes
// the function idempotent for a given now and monotonic in time. A record
// with no LastDecay only gets its baseline set.
func ApplyDecay(r Record, now time.Time, rates DecayRates) Record {
	if r.LastDecay.IsZero() {
		r.LastDecay = now
		return r
	}
	if !now.After(r.LastDecay) {
		return r
	}
	days := now.Sub(r.LastDecay).Hours() / 24

	r.PaapTokens.Minor = decay(r.PaapTokens.Minor, rates.PaapMinor, days)
	r.PaapTokens.Medium = decay(r.PaapTokens.Medium, rates.PaapMedium, days)
	r.PaapTokens.Maha = decay(r.PaapTokens.Maha, rates.PaapMaha, days)
	r.Adridha = decay(r.Adridha, rates.Adridha, days)
	r.LastDecay = now
	return r
}

func decay(v, rate, days float64) float64 {
	if v == 0 || rate <= 0 {
		return v
	}
	return v * math.Exp(-rate*days)
}
