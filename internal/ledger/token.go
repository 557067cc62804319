package ledger

import (
	"fmt"
	"strings"
)

// TokenKind identifies a ledger token family.
type TokenKind int

const (
	// TokenDharma counts righteous conduct points.
	TokenDharma TokenKind = iota + 1
	// TokenSeva counts service points.
	TokenSeva
	// TokenPunya counts merit points.
	TokenPunya
	// TokenPaap counts transgressions, tiered by PaapTier.
	TokenPaap
)

var tokenKindNames = map[TokenKind]string{
	TokenDharma: "dharma",
	TokenSeva:   "seva",
	TokenPunya:  "punya",
	TokenPaap:   "paap",
}

func (k TokenKind) String() string {
	if s, ok := tokenKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// ParseTokenKind resolves a configured token name.
func ParseTokenKind(s string) (TokenKind, error) {
	for k, name := range tokenKindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown token kind %q", s)
}

// PaapTier is the severity tier of a Paap token.
type PaapTier int

const (
	PaapMinor PaapTier = iota + 1
	PaapMedium
	PaapMaha
)

var paapTierNames = map[PaapTier]string{
	PaapMinor:  "minor",
	PaapMedium: "medium",
	PaapMaha:   "maha",
}

func (t PaapTier) String() string {
	if s, ok := paapTierNames[t]; ok {
		return s
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParsePaapTier resolves a configured tier name.
func ParsePaapTier(s string) (PaapTier, error) {
	for t, name := range paapTierNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown paap tier %q", s)
}

// Severity maps the tier to the debt severity used by the Rnanubandhan
// sub-ledger and the debt network.
func (t PaapTier) Severity() Severity {
	switch t {
	case PaapMinor:
		return SeverityMinor
	case PaapMedium:
		return SeverityMedium
	case PaapMaha:
		return SeverityMajor
	}
	return 0
}

// Token addresses one balance on a Record. Tier is set only for TokenPaap.
type Token struct {
	Kind TokenKind
	Tier PaapTier
}

var (
	Dharma = Token{Kind: TokenDharma}
	Seva   = Token{Kind: TokenSeva}
	Punya  = Token{Kind: TokenPunya}
)

// Paap returns the token for the given tier.
func Paap(tier PaapTier) Token {
	return Token{Kind: TokenPaap, Tier: tier}
}

// Valid reports whether the token addresses an existing balance.
func (t Token) Valid() bool {
	switch t.Kind {
	case TokenDharma, TokenSeva, TokenPunya:
		return t.Tier == 0
	case TokenPaap:
		_, ok := paapTierNames[t.Tier]
		return ok
	}
	return false
}

func (t Token) String() string {
	if t.Kind == TokenPaap {
		return t.Kind.String() + "." + t.Tier.String()
	}
	return t.Kind.String()
}

// Severity is the weight class of a debt obligation.
type Severity int

const (
	SeverityMinor Severity = iota + 1
	SeverityMedium
	SeverityMajor
)

var severityNames = map[Severity]string{
	SeverityMinor:  "minor",
	SeverityMedium: "medium",
	SeverityMajor:  "major",
}

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity resolves a severity name.
func ParseSeverity(s string) (Severity, error) {
	for sev, name := range severityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
