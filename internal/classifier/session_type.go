package classifier

import (
	"strings"
)

// Session categories.
const (
	CategorySimRound = "sim_round"
	CategoryPractice = "practice"
	CategoryDrill    = "drill"
	CategoryWarmup   = "warmup"
	CategoryFitting  = "fitting"
)

// ClassificationResult is the derived classification for one session. It is
// never persisted as its own entity; the runner folds it into the session row.
type ClassificationResult struct {
	Category   string             `json:"category"`
	TypeName   string             `json:"typeName"`
	Confidence float64            `json:"confidence"`
	Signals    map[string]float64 `json:"signals,omitempty"`
}

// ScoreConfig tunes the round-likeness scorer.
type ScoreConfig struct {
	// MinRoundShots / MaxRoundShots bound the plausible shot count for a
	// full simulated round.
	MinRoundShots int
	MaxRoundShots int

	// RoundThreshold is the score at which a session classifies as a
	// simulated round.
	RoundThreshold float64
}

// DefaultScoreConfig returns the tuning used in production.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		MinRoundShots:  50,
		MaxRoundShots:  120,
		RoundThreshold: 0.7,
	}
}

// Session-type thresholds for the non-round ladder.
const (
	warmupMaxShots   = 7
	drillMinShots    = 10
	drillMaxDistinct = 2
	fittingMinShots  = 50
)

// maxScorePoints is the highest attainable signal sum; the round-likeness
// score is points / maxScorePoints.
const maxScorePoints = 14.0

// RoundLikeness computes the composite round-likeness score in [0,1] for an
// ordered sequence of canonical club tags, along with the per-signal
// diagnostic map.
func RoundLikeness(tags []string, cfg ScoreConfig) (float64, map[string]float64) {
	signals := make(map[string]float64, 8)
	if len(tags) == 0 {
		signals["score"] = 0
		return 0, signals
	}

	counts := make(map[string]int, 16)
	coarse := make(map[CoarseCategory]int, 4)
	longIron := false
	for _, t := range tags {
		counts[t]++
		coarse[Coarse(t)]++
		if isLongIron(t) {
			longIron = true
		}
	}

	points := 0.0

	// (a) distinct tag count: a full bag shows variety.
	distinct := len(counts)
	switch {
	case distinct >= 10:
		points += 2
	case distinct >= 6:
		points += 1
	}
	signals["distinct_tags"] = float64(distinct)

	// (b) coarse game areas represented.
	areas := len(coarse)
	switch {
	case areas >= 4:
		points += 2
	case areas == 3:
		points += 1
	}
	signals["coarse_categories"] = float64(areas)

	// (c) inverse dominance: block practice hammers one club, rounds do not.
	top := 0
	for _, c := range counts {
		if c > top {
			top = c
		}
	}
	dominance := float64(top) / float64(len(tags))
	switch {
	case dominance <= 0.3:
		points += 2
	case dominance <= 0.5:
		points += 1
	}
	signals["dominance"] = dominance

	// (d) plausible round length.
	inWindow := len(tags) >= cfg.MinRoundShots && len(tags) <= cfg.MaxRoundShots
	if inWindow {
		points += 2
		signals["length_window"] = 1
	} else {
		signals["length_window"] = 0
	}

	// (e) hole-like sequences.
	holes := countHoleSequences(tags)
	switch {
	case holes >= 6:
		points += 3
	case holes >= 3:
		points += 2
	case holes >= 1:
		points += 1
	}
	signals["hole_sequences"] = float64(holes)

	// (f) inverse repetition: fraction of shots inside same-club runs of 3+.
	repetition := repetitionRatio(tags)
	switch {
	case repetition <= 0.2:
		points += 2
	case repetition <= 0.4:
		points += 1
	}
	signals["repetition_ratio"] = repetition

	// (g) long irons show up in simulated rounds, rarely in casual practice.
	if longIron {
		points += 1
		signals["long_iron_bonus"] = 1
	} else {
		signals["long_iron_bonus"] = 0
	}

	score := points / maxScorePoints
	signals["score"] = score
	return score, signals
}

// countHoleSequences counts maximal runs that start on a long-game club and
// stay monotonically non-decreasing in tier until reaching the short game or
// the putter.
func countHoleSequences(tags []string) int {
	holes := 0
	i := 0
	for i < len(tags) {
		if tier(tags[i]) != 0 {
			i++
			continue
		}
		maxTier := 0
		j := i + 1
		for j < len(tags) && tier(tags[j]) >= tier(tags[j-1]) {
			if t := tier(tags[j]); t > maxTier {
				maxTier = t
			}
			j++
		}
		if maxTier >= 2 && j-i >= 3 {
			holes++
		}
		i = j
	}
	return holes
}

// repetitionRatio returns the fraction of shots that sit inside a
// same-club run of length 3 or more.
func repetitionRatio(tags []string) float64 {
	if len(tags) == 0 {
		return 0
	}
	blocked := 0
	runStart := 0
	for i := 1; i <= len(tags); i++ {
		if i == len(tags) || tags[i] != tags[runStart] {
			if run := i - runStart; run >= 3 {
				blocked += run
			}
			runStart = i
		}
	}
	return float64(blocked) / float64(len(tags))
}

// DetectSessionType classifies an ordered canonical tag sequence. sourceHint
// is the portal's own label for the session; an explicit "round" marker in it
// short-circuits the scorer, since direct evidence outranks inference.
// shotCount may exceed len(tags) when the portal reports untagged shots.
func DetectSessionType(tags []string, shotCount int, sourceHint string, cfg ScoreConfig) ClassificationResult {
	if shotCount < len(tags) {
		shotCount = len(tags)
	}

	if hintsRound(sourceHint) {
		return ClassificationResult{
			Category:   CategorySimRound,
			TypeName:   "Sim Round",
			Confidence: 0.95,
			Signals:    map[string]float64{"source_hint": 1},
		}
	}

	score, signals := RoundLikeness(tags, cfg)
	if score >= cfg.RoundThreshold {
		// Confidence scales 0.6 at the threshold up to 0.95 at a perfect score.
		span := 1.0 - cfg.RoundThreshold
		conf := 0.6
		if span > 0 {
			conf += (score - cfg.RoundThreshold) / span * 0.35
		}
		if conf > 0.95 {
			conf = 0.95
		}
		return ClassificationResult{
			Category:   CategorySimRound,
			TypeName:   "Sim Round",
			Confidence: conf,
			Signals:    signals,
		}
	}

	distinct := int(signals["distinct_tags"])
	dominant := dominantTag(tags)

	switch {
	case shotCount <= warmupMaxShots:
		return ClassificationResult{Category: CategoryWarmup, TypeName: "Warmup", Confidence: 0.7, Signals: signals}
	case distinct == 1 && shotCount >= fittingMinShots:
		return ClassificationResult{
			Category:   CategoryFitting,
			TypeName:   DisplayClubName(dominant) + " Fitting",
			Confidence: 0.7,
			Signals:    signals,
		}
	case distinct >= 1 && distinct <= drillMaxDistinct && shotCount >= drillMinShots:
		return ClassificationResult{
			Category:   CategoryDrill,
			TypeName:   DisplayClubName(dominant) + " Focus",
			Confidence: 0.75,
			Signals:    signals,
		}
	default:
		return ClassificationResult{Category: CategoryPractice, TypeName: "Range Practice", Confidence: 0.6, Signals: signals}
	}
}

func hintsRound(hint string) bool {
	h := strings.ToLower(hint)
	return strings.Contains(h, "round") || strings.Contains(h, "18 holes") || strings.Contains(h, "9 holes")
}

func dominantTag(tags []string) string {
	counts := make(map[string]int, 16)
	best, bestCount := "", 0
	for _, t := range tags {
		counts[t]++
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	return best
}
