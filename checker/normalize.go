package checker

import (
	"regexp"
	"strings"
)

// canonicalRe is the international-format shape every accepted number must match.
var canonicalRe = regexp.MustCompile(`^\+[1-9]\d{9,14}$`)

// NormalizerConfig describes the default-country heuristic. The values are
// numbering-plan policy, not protocol, so they are never hard-coded.
type NormalizerConfig struct {
	// CountryCode is the country calling code prepended to national numbers,
	// without the leading plus.
	CountryCode string
	// TrunkPrefix is the national dialing prefix that marks a local number.
	TrunkPrefix string
	// NationalLength is the expected digit count of a full national number,
	// trunk prefix included.
	NationalLength int
}

// Normalizer turns free-form digit strings into canonical international form.
type Normalizer struct {
	cfg NormalizerConfig
}

// NewNormalizer builds a Normalizer for the given numbering plan.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize cleans raw input and reshapes it into canonical form.
// The rules apply in documented order, first match wins:
//  1. keep digits and a leading plus only
//  2. already-international input is accepted if it matches the canonical shape
//  3. a trunk-prefixed number of national length gains the country code
//  4. a number already starting with the country code digits gains the plus
//
// Anything that still fails the canonical shape is rejected; the caller keeps
// the raw token for display.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	clean := stripToDigits(raw)
	if clean == "" {
		return "", false
	}

	if strings.HasPrefix(clean, "+") {
		if canonicalRe.MatchString(clean) {
			return clean, true
		}
		return "", false
	}

	cc := n.cfg.CountryCode
	switch {
	case cc != "" && n.cfg.TrunkPrefix != "" &&
		strings.HasPrefix(clean, n.cfg.TrunkPrefix) &&
		len(clean) == n.cfg.NationalLength:
		clean = "+" + cc + clean
	case cc != "" && strings.HasPrefix(clean, cc) &&
		len(clean) == len(cc)+n.cfg.NationalLength:
		clean = "+" + clean
	}

	if canonicalRe.MatchString(clean) {
		return clean, true
	}
	return "", false
}

// stripToDigits removes separators, keeping digits and a plus only when it is
// the very first meaningful character.
func stripToDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
