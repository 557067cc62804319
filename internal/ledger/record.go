package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle state of a ledger record.
type Status string

const (
	StatusAlive        Status = "alive"
	StatusDeathPending Status = "death_pending"
	StatusSuperseded   Status = "superseded"
)

// PaapTokens holds the tiered transgression balances.
type PaapTokens struct {
	Minor  float64 `json:"minor"`
	Medium float64 `json:"medium"`
	Maha   float64 `json:"maha"`
}

// Total returns the sum of all tiers.
func (p PaapTokens) Total() float64 {
	return p.Minor + p.Medium + p.Maha
}

// DebtLedger is the Rnanubandhan sub-ledger: outstanding obligations owed by
// the record's user, by severity.
type DebtLedger struct {
	Minor  float64 `json:"minor"`
	Medium float64 `json:"medium"`
	Major  float64 `json:"major"`
}

// Total returns the unweighted outstanding amount.
func (d DebtLedger) Total() float64 {
	return d.Minor + d.Medium + d.Major
}

// Add adjusts the balance for sev by delta, flooring at zero.
func (d DebtLedger) Add(sev Severity, delta float64) DebtLedger {
	switch sev {
	case SeverityMinor:
		d.Minor = floorZero(d.Minor + delta)
	case SeverityMedium:
		d.Medium = floorZero(d.Medium + delta)
	case SeverityMajor:
		d.Major = floorZero(d.Major + delta)
	}
	return d
}

// Death is the outcome recorded when a user's death is triggered.
type Death struct {
	Loka     string    `json:"loka"`
	NetKarma float64   `json:"net_karma"`
	At       time.Time `json:"at"`
}

// Record is one user's karmic ledger.
type Record struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Status Status `json:"status"`

	DharmaPoints float64    `json:"dharma_points"`
	SevaPoints   float64    `json:"seva_points"`
	PunyaPoints  float64    `json:"punya_points"`
	PaapTokens   PaapTokens `json:"paap_tokens"`

	Dridha    float64 `json:"dridha"`
	Adridha   float64 `json:"adridha"`
	Sanchita  float64 `json:"sanchita"`
	Prarabdha float64 `json:"prarabdha"`

	Rnanubandhan DebtLedger `json:"rnanubandhan"`

	RebirthCount  int       `json:"rebirth_count"`
	DeathCount    int       `json:"death_count"`
	LastDeath     *Death    `json:"last_death,omitempty"`
	PredecessorID string    `json:"predecessor_id,omitempty"`
	SuccessorID   string    `json:"successor_id,omitempty"`
	CheatCount    int       `json:"cheat_count"`
	LastCheat     time.Time `json:"last_cheat,omitzero"`
	LastDecay     time.Time `json:"last_decay"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// CheatTimes are the cheats inside the rolling window, oldest first.
	CheatTimes []time.Time `json:"cheat_times,omitempty"`
}

// NewRecord creates the ledger for a user seen for the first time.
func NewRecord(userID string, now time.Time) Record {
	return Record{
		UserID:    userID,
		Role:      RoleLearner,
		Status:    StatusAlive,
		LastDecay: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r.LastDeath != nil {
		d := *r.LastDeath
		r.LastDeath = &d
	}
	r.CheatTimes = slices.Clone(r.CheatTimes)
	return r
}

// TotalPositive returns the sum of the simple (positive) tokens.
func (r Record) TotalPositive() float64 {
	return r.DharmaPoints + r.SevaPoints + r.PunyaPoints
}

// Balance returns the current balance addressed by tok.
func (r Record) Balance(tok Token) (float64, error) {
	if !tok.Valid() {
		return 0, fmt.Errorf("invalid token %v", tok)
	}
	switch tok.Kind {
	case TokenDharma:
		return r.DharmaPoints, nil
	case TokenSeva:
		return r.SevaPoints, nil
	case TokenPunya:
		return r.PunyaPoints, nil
	}
	switch tok.Tier {
	case PaapMinor:
		return r.PaapTokens.Minor, nil
	case PaapMedium:
		return r.PaapTokens.Medium, nil
	default:
		return r.PaapTokens.Maha, nil
	}
}

func (r *Record) setBalance(tok Token, v float64) {
	switch tok.Kind {
	case TokenDharma:
		r.DharmaPoints = v
	case TokenSeva:
		r.SevaPoints = v
	case TokenPunya:
		r.PunyaPoints = v
	case TokenPaap:
		switch tok.Tier {
		case PaapMinor:
			r.PaapTokens.Minor = v
		case PaapMedium:
			r.PaapTokens.Medium = v
		case PaapMaha:
			r.PaapTokens.Maha = v
		}
	}
}

// ApplyToken adds delta to the balance addressed by tok.
//
// A decrement larger than the current balance is rejected: the record comes
// back unchanged and applied is false. Callers validate debits beforehand,
// so the rejection is a guard, not a control path. Invalid tokens and
// non-finite deltas are rejected the same way.
func ApplyToken(r Record, tok Token, delta float64) (Record, bool) {
	cur, err := r.Balance(tok)
	if err != nil || !finite(delta) {
		return r, false
	}
	next := cur + delta
	if next < 0 {
		return r, false
	}
	r.setBalance(tok, next)
	return r, true
}

// Role is the ordered progression tier of a user.
type Role int

const (
	RoleLearner Role = iota + 1
	RoleVolunteer
	RoleMentor
	RoleGuru
)

var roleNames = map[Role]string{
	RoleLearner:   "learner",
	RoleVolunteer: "volunteer",
	RoleMentor:    "mentor",
	RoleGuru:      "guru",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole resolves a role name.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if strings.EqualFold(s, name) {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if _, ok := roleNames[r]; !ok {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// RoleThresholds are the minimum weighted scores for each promotion.
type RoleThresholds struct {
	Volunteer float64 `yaml:"volunteer" json:"volunteer"`
	Mentor    float64 `yaml:"mentor" json:"mentor"`
	Guru      float64 `yaml:"guru" json:"guru"`
}

// DefaultRoleThresholds returns the standard promotion ladder.
func DefaultRoleThresholds() RoleThresholds {
	return RoleThresholds{Volunteer: 100, Mentor: 500, Guru: 1000}
}

// RoleForScore returns the highest role whose threshold score reaches.
func RoleForScore(score float64, th RoleThresholds) Role {
	switch {
	case score >= th.Guru:
		return RoleGuru
	case score >= th.Mentor:
		return RoleMentor
	case score >= th.Volunteer:
		return RoleVolunteer
	default:
		return RoleLearner
	}
}

// Promote raises r.Role to the role earned by score. Roles never go down.
func Promote(r Record, score float64, th RoleThresholds) Record {
	if earned := RoleForScore(score, th); earned > r.Role {
		r.Role = earned
	}
	return r
}
