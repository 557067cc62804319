package lifecycle

import (
	"fmt"
	"math"
)

// Loka is the outcome tier assigned at death.
type Loka string

const (
	Naraka     Loka = "naraka"
	Mrityuloka Loka = "mrityuloka"
	Swarga     Loka = "swarga"
	Brahmaloka Loka = "brahmaloka"
)

// Lokas lists the tiers from lowest to highest.
var Lokas = []Loka{Naraka, Mrityuloka, Swarga, Brahmaloka}

// Config holds the lifecycle constants.
type Config struct {
	// DeathThreshold is the (negative) Prarabdha at or below which death
	// may be triggered.
	DeathThreshold float64 `yaml:"death_threshold" json:"death_threshold"`

	// LokaThresholds are the ascending net karma boundaries between the
	// tiers in Lokas. There must be exactly len(Lokas)-1 of them.
	LokaThresholds []float64 `yaml:"loka_thresholds" json:"loka_thresholds"`

	// PositiveCarry is the share of positive net karma added to Sanchita
	// on rebirth.
	PositiveCarry float64 `yaml:"positive_carry" json:"positive_carry"`

	// NegativeCarry is the share of negative net karma removed from
	// Sanchita on rebirth.
	NegativeCarry float64 `yaml:"negative_carry" json:"negative_carry"`

	// AutoDeath records a death as soon as an action takes a living user
	// to the threshold. Off, the threshold is only reported.
	AutoDeath bool `yaml:"auto_death" json:"auto_death"`
}

// DefaultConfig returns the standard lifecycle constants.
func DefaultConfig() Config {
	return Config{
		DeathThreshold: -100,
		LokaThresholds: []float64{0, 100, 500},
		PositiveCarry:  0.2,
		NegativeCarry:  0.5,
	}
}

// Validate checks the invariants the state machine depends on.
func (c Config) Validate() error {
	if !(c.DeathThreshold < 0) {
		return fmt.Errorf("death threshold must be negative, got %v", c.DeathThreshold)
	}
	if len(c.LokaThresholds) != len(Lokas)-1 {
		return fmt.Errorf("need %d loka thresholds, got %d", len(Lokas)-1, len(c.LokaThresholds))
	}
	for i := 1; i < len(c.LokaThresholds); i++ {
		if c.LokaThresholds[i] <= c.LokaThresholds[i-1] {
			return fmt.Errorf("loka thresholds must ascend: %v", c.LokaThresholds)
		}
	}
	if c.PositiveCarry < 0 || c.NegativeCarry < 0 {
		return fmt.Errorf("carry rates must not be negative")
	}
	return nil
}

// LokaFor buckets net karma: below the first threshold is the lowest tier,
// at or above the last is the highest.
func LokaFor(netKarma float64, thresholds []float64) Loka {
	i := 0
	for i < len(thresholds) && netKarma >= thresholds[i] {
		i++
	}
	if i >= len(Lokas) {
		i = len(Lokas) - 1
	}
	return Lokas[i]
}

// Inherit returns the Sanchita carried into the next life. Positive net karma
// adds PositiveCarry of itself, negative net karma removes NegativeCarry of
// its magnitude. The result is never negative.
func Inherit(sanchita, netKarma float64, cfg Config) float64 {
	var v float64
	if netKarma >= 0 {
		v = sanchita + cfg.PositiveCarry*netKarma
	} else {
		v = sanchita - cfg.NegativeCarry*math.Abs(netKarma)
	}
	return math.Max(v, 0)
}
