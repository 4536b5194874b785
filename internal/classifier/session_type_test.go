package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatTags(n int, tags ...string) []string {
	out := make([]string, 0, n*len(tags))
	for i := 0; i < n; i++ {
		out = append(out, tags...)
	}
	return out
}

func TestDetectDriverFocusSession(t *testing.T) {
	// 15 driver shots and 5 seven irons is block practice, not a round.
	tags := append(repeatTags(15, ClubDriver), repeatTags(5, "7I")...)

	result := DetectSessionType(tags, 20, "", DefaultScoreConfig())

	assert.Equal(t, CategoryDrill, result.Category)
	assert.Equal(t, "Driver Focus", result.TypeName)
}

func TestDetectSimRoundFromHoleSequences(t *testing.T) {
	// Eight holes of long -> mid -> short -> putter progression, 64 shots.
	hole := []string{ClubDriver, "3W", "5I", "7I", "9I", ClubPW, ClubSW, ClubPutter}
	tags := repeatTags(8, hole...)
	require.Len(t, tags, 64)

	score, signals := RoundLikeness(tags, DefaultScoreConfig())
	assert.GreaterOrEqual(t, score, 0.7)
	assert.Equal(t, 8.0, signals["hole_sequences"])

	result := DetectSessionType(tags, 64, "", DefaultScoreConfig())
	assert.Equal(t, CategorySimRound, result.Category)
	assert.Equal(t, "Sim Round", result.TypeName)
	assert.GreaterOrEqual(t, result.Confidence, 0.6)
	assert.LessOrEqual(t, result.Confidence, 0.95)
}

func TestDetectWarmup(t *testing.T) {
	result := DetectSessionType([]string{ClubDriver, "7I", ClubSW}, 3, "", DefaultScoreConfig())
	assert.Equal(t, CategoryWarmup, result.Category)
}

func TestDetectFitting(t *testing.T) {
	result := DetectSessionType(repeatTags(60, "7I"), 60, "", DefaultScoreConfig())
	assert.Equal(t, CategoryFitting, result.Category)
	assert.Equal(t, "7 Iron Fitting", result.TypeName)
}

func TestDetectPractice(t *testing.T) {
	tags := append(repeatTags(10, ClubDriver, "5I", "7I"), repeatTags(5, ClubSW)...)
	result := DetectSessionType(tags, len(tags), "", DefaultScoreConfig())
	assert.Equal(t, CategoryPractice, result.Category)
	assert.Equal(t, "Range Practice", result.TypeName)
}

func TestSourceHintShortCircuitsScorer(t *testing.T) {
	// Pure block practice, but the portal labelled it a round.
	tags := repeatTags(30, ClubDriver)

	result := DetectSessionType(tags, 30, "Sunday round at Pebble", DefaultScoreConfig())

	assert.Equal(t, CategorySimRound, result.Category)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestDetectDeterminism(t *testing.T) {
	tags := repeatTags(8, ClubDriver, "3W", "5I", "7I", "9I", ClubPW, ClubSW, ClubPutter)

	first := DetectSessionType(tags, 64, "range", DefaultScoreConfig())
	for i := 0; i < 5; i++ {
		again := DetectSessionType(tags, 64, "range", DefaultScoreConfig())
		assert.Equal(t, first.Category, again.Category)
		assert.Equal(t, first.Confidence, again.Confidence)
	}
}

func TestCountHoleSequences(t *testing.T) {
	t.Run("monotonic run reaching putter counts", func(t *testing.T) {
		assert.Equal(t, 1, countHoleSequences([]string{ClubDriver, "7I", ClubSW, ClubPutter}))
	})

	t.Run("run must start on a long club", func(t *testing.T) {
		assert.Equal(t, 0, countHoleSequences([]string{"7I", "9I", ClubSW, ClubPutter}))
	})

	t.Run("run must reach the short game", func(t *testing.T) {
		assert.Equal(t, 0, countHoleSequences([]string{ClubDriver, "5I", "7I"}))
	})

	t.Run("tier regression ends the run", func(t *testing.T) {
		// Drops back to mid before reaching the short game, then a clean hole.
		tags := []string{ClubDriver, "9I", "7I", ClubDriver, "7I", ClubPW, ClubPutter}
		assert.Equal(t, 1, countHoleSequences(tags))
	})
}

func TestRepetitionRatio(t *testing.T) {
	assert.Equal(t, 0.0, repetitionRatio([]string{ClubDriver, "7I", ClubDriver, "7I"}))
	assert.Equal(t, 1.0, repetitionRatio(repeatTags(6, ClubDriver)))

	// A run of 3 inside 6 shots blocks half the session.
	tags := []string{"7I", "7I", "7I", ClubDriver, ClubSW, ClubPutter}
	assert.Equal(t, 0.5, repetitionRatio(tags))
}

func TestDisplayName(t *testing.T) {
	result := ClassificationResult{TypeName: "Sim Round"}

	t.Run("with date", func(t *testing.T) {
		date := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
		assert.Equal(t, "Mar 14, 2026 - Sim Round (64 shots)", DisplayName(&date, result, 64))
	})

	t.Run("unknown date uses the placeholder", func(t *testing.T) {
		assert.Equal(t, "Unknown Date - Sim Round (64 shots)", DisplayName(nil, result, 64))
	})
}
