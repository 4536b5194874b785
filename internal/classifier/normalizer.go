package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Normalization rule identifiers, reported for diagnostics.
const (
	RuleExact       = "exact"
	RuleCustom      = "custom"
	RuleNamedWedge  = "named_wedge"
	RuleDegreeWedge = "degree_wedge"
	RuleDriver      = "driver"
	RuleWood        = "wood"
	RuleHybrid      = "hybrid"
	RuleIron        = "iron"
	RulePutter      = "putter"
	RuleDupSuffix   = "duplicate_suffix"
	RuleBareDigit   = "bare_digit"
	RuleFallback    = "fallback"
)

// Normalizer maps raw, inconsistent portal club labels onto the canonical
// vocabulary. Stateless after construction; a single instance can be shared.
type Normalizer struct {
	custom map[string]string
}

// NewNormalizer creates a normalizer. The custom mapping (raw label, any
// case, to canonical label) is consulted after exact matches and before the
// pattern table, so user-supplied corrections win over heuristics.
func NewNormalizer(custom map[string]string) *Normalizer {
	m := make(map[string]string, len(custom))
	for k, v := range custom {
		m[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return &Normalizer{custom: m}
}

var (
	namedWedgeRe = regexp.MustCompile(`(?i)^(pitching|approach|gap|sand|lob)\s*wedge$`)
	// Matches "56", "56 deg", "56 degrees", "Wedge 50", "50 wedge".
	degreeWedgeRe = regexp.MustCompile(`(?i)^(?:wedge\s*)?(\d{2})\s*(?:°|deg(?:ree)?s?)?\s*(?:wedge)?$`)
	driverRe      = regexp.MustCompile(`(?i)^(?:driver|dr|1\s*w(?:ood)?)$`)
	woodRe        = regexp.MustCompile(`(?i)^(?:([2-9])\s*[-_ ]?\s*w(?:ood)?|w(?:ood)?\s*([2-9]))$`)
	hybridRe      = regexp.MustCompile(`(?i)^(?:([2-6])\s*[-_ ]?\s*(?:h(?:ybrid)?|rescue)|(?:hybrid|rescue)\s*([2-6]))$`)
	ironRe        = regexp.MustCompile(`(?i)^(?:([1-9])\s*[-_ ]?\s*i(?:ron)?|i(?:ron)?\s*([1-9]))$`)
	putterRe      = regexp.MustCompile(`(?i)^(?:putter|putt|flat\s*stick)$`)
	dupSuffixRe   = regexp.MustCompile(`^(.*\S)\s+\d$`)
	bareDigitRe   = regexp.MustCompile(`^[1-9]$`)
)

var namedWedges = map[string]string{
	"pitching": ClubPW,
	"approach": ClubAW,
	"gap":      ClubGW,
	"sand":     ClubSW,
	"lob":      ClubLW,
}

// wedgeForDegree maps a loft in degrees onto one of the five wedge buckets.
func wedgeForDegree(deg int) (string, bool) {
	switch {
	case deg >= 44 && deg <= 46:
		return ClubPW, true
	case deg >= 47 && deg <= 49:
		return ClubAW, true
	case deg >= 50 && deg <= 52:
		return ClubGW, true
	case deg >= 53 && deg <= 57:
		return ClubSW, true
	case deg >= 58 && deg <= 62:
		return ClubLW, true
	}
	return "", false
}

// Normalize resolves a raw label to (canonical, confidence, rule).
//
// Resolution order matters: structurally anchored patterns (degree wedges,
// explicit wood/hybrid/iron forms) run before the bare-digit fallback so a
// wedge loft like "56" is never mistaken for an iron number. No match falls
// through to a title-cased copy of the input at low confidence.
func (n *Normalizer) Normalize(raw string) (string, float64, string) {
	label := strings.TrimSpace(raw)
	if label == "" {
		return "", 0, RuleFallback
	}

	if c, ok := Canonical(label); ok {
		return c, 1.0, RuleExact
	}
	if c, ok := n.custom[strings.ToUpper(label)]; ok {
		return c, 1.0, RuleCustom
	}

	if m := namedWedgeRe.FindStringSubmatch(label); m != nil {
		return namedWedges[strings.ToLower(m[1])], 0.95, RuleNamedWedge
	}
	if m := degreeWedgeRe.FindStringSubmatch(label); m != nil {
		deg, _ := strconv.Atoi(m[1])
		if c, ok := wedgeForDegree(deg); ok {
			return c, 0.9, RuleDegreeWedge
		}
	}
	if driverRe.MatchString(label) {
		return ClubDriver, 0.95, RuleDriver
	}
	if m := woodRe.FindStringSubmatch(label); m != nil {
		return firstGroup(m) + "W", 0.95, RuleWood
	}
	if m := hybridRe.FindStringSubmatch(label); m != nil {
		return firstGroup(m) + "H", 0.95, RuleHybrid
	}
	if m := ironRe.FindStringSubmatch(label); m != nil {
		return firstGroup(m) + "I", 0.95, RuleIron
	}
	if putterRe.MatchString(label) {
		return ClubPutter, 0.95, RulePutter
	}

	// Portals append a numeral when two bags carry the same club ("SW 2").
	// Strip it and retry, keeping the lower duplicate-suffix confidence.
	if m := dupSuffixRe.FindStringSubmatch(label); m != nil {
		if c, conf, _ := n.Normalize(m[1]); conf >= 0.7 {
			return c, 0.85, RuleDupSuffix
		}
	}

	if bareDigitRe.MatchString(label) {
		return label + "I", 0.7, RuleBareDigit
	}

	return titleCase(label), 0.3, RuleFallback
}

// NormalizeAll maps a tag sequence through Normalize, preserving order.
func (n *Normalizer) NormalizeAll(raw []string) []string {
	out := make([]string, len(raw))
	for i, r := range raw {
		out[i], _, _ = n.Normalize(r)
	}
	return out
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
