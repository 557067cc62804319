package ledger

import "math"

// Weights are the per-accumulator multipliers of the net karmic weight.
type Weights struct {
	Dridha    float64 `yaml:"dridha" json:"dridha"`
	Adridha   float64 `yaml:"adridha" json:"adridha"`
	Sanchita  float64 `yaml:"sanchita" json:"sanchita"`
	Prarabdha float64 `yaml:"prarabdha" json:"prarabdha"`

	DebtMinor  float64 `yaml:"debt_minor" json:"debt_minor"`
	DebtMedium float64 `yaml:"debt_medium" json:"debt_medium"`
	DebtMajor  float64 `yaml:"debt_major" json:"debt_major"`
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		Dridha:     0.8,
		Adridha:    0.3,
		Sanchita:   1.0,
		Prarabdha:  1.0,
		DebtMinor:  1,
		DebtMedium: 2,
		DebtMajor:  4,
	}
}

// Multiplier returns the debt weight for a severity, 0 for unknown values.
func (w Weights) Multiplier(sev Severity) float64 {
	switch sev {
	case SeverityMinor:
		return w.DebtMinor
	case SeverityMedium:
		return w.DebtMedium
	case SeverityMajor:
		return w.DebtMajor
	}
	return 0
}

// WeightedScore is the net karmic weight of a record. Outstanding
// Rnanubandhan obligations count against it.
func WeightedScore(r Record, w Weights) float64 {
	positive := w.Dridha*r.Dridha +
		w.Adridha*r.Adridha +
		w.Sanchita*r.Sanchita +
		w.Prarabdha*r.Prarabdha
	debt := w.DebtMinor*r.Rnanubandhan.Minor +
		w.DebtMedium*r.Rnanubandhan.Medium +
		w.DebtMajor*r.Rnanubandhan.Major
	return positive - debt
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
