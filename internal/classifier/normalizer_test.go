package classifier

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeExactMatch(t *testing.T) {
	n := NewNormalizer(nil)

	for _, raw := range []string{"Driver", "driver", "DRIVER", "sw", "7I", "putter"} {
		_, conf, rule := n.Normalize(raw)
		assert.Equal(t, 1.0, conf, "raw=%q", raw)
		assert.Equal(t, RuleExact, rule, "raw=%q", raw)
	}

	c, _, _ := n.Normalize("sw")
	assert.Equal(t, ClubSW, c)
}

func TestNormalizeCustomMapping(t *testing.T) {
	n := NewNormalizer(map[string]string{"My Gamer Wedge": ClubSW})

	c, conf, rule := n.Normalize("my gamer wedge")
	assert.Equal(t, ClubSW, c)
	assert.Equal(t, 1.0, conf)
	assert.Equal(t, RuleCustom, rule)
}

func TestNormalizeDegreeWedges(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		raw  string
		want string
	}{
		{"56 deg", ClubSW},
		{"Wedge 50", ClubGW},
		{"46", ClubPW},
		{"48 degrees", ClubAW},
		{"60", ClubLW},
		{"58 wedge", ClubLW},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, conf, rule := n.Normalize(tt.raw)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, 0.9, conf)
			assert.Equal(t, RuleDegreeWedge, rule)
		})
	}
}

func TestNormalizePatternTable(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		raw      string
		want     string
		wantRule string
	}{
		{"7-Iron", "7I", RuleIron},
		{"iron 7", "7I", RuleIron},
		{"3 wood", "3W", RuleWood},
		{"Wood 5", "5W", RuleWood},
		{"4 hybrid", "4H", RuleHybrid},
		{"rescue 3", "3H", RuleHybrid},
		{"1w", ClubDriver, RuleDriver},
		{"dr", ClubDriver, RuleDriver},
		{"putt", ClubPutter, RulePutter},
		{"sand wedge", ClubSW, RuleNamedWedge},
		{"pitching wedge", ClubPW, RuleNamedWedge},
		{"SW 2", ClubSW, RuleDupSuffix},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, conf, rule := n.Normalize(tt.raw)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, tt.wantRule, rule)
			assert.GreaterOrEqual(t, conf, 0.85)
			assert.LessOrEqual(t, conf, 0.95)
		})
	}
}

func TestNormalizeBareDigitIsIron(t *testing.T) {
	n := NewNormalizer(nil)

	c, conf, rule := n.Normalize("7")
	assert.Equal(t, "7I", c)
	assert.Equal(t, 0.7, conf)
	assert.Equal(t, RuleBareDigit, rule)
}

// A two-digit number in the wedge loft range must resolve as a wedge, never
// fall through to a numeric iron guess.
func TestNormalizeWedgeDegreeBeatsNumericFallback(t *testing.T) {
	n := NewNormalizer(nil)

	c, _, rule := n.Normalize("56")
	assert.Equal(t, ClubSW, c)
	assert.Equal(t, RuleDegreeWedge, rule)
}

func TestNormalizeFallback(t *testing.T) {
	n := NewNormalizer(nil)

	c, conf, rule := n.Normalize("mystery stick")
	assert.Equal(t, "Mystery Stick", c)
	assert.Equal(t, 0.3, conf)
	assert.Equal(t, RuleFallback, rule)
}

func TestNormalizeDeterminism(t *testing.T) {
	n := NewNormalizer(nil)
	properties := gopter.NewProperties(nil)

	properties.Property("same input always yields the same output", prop.ForAll(
		func(raw string) bool {
			c1, conf1, r1 := n.Normalize(raw)
			c2, conf2, r2 := n.Normalize(raw)
			return c1 == c2 && conf1 == conf2 && r1 == r2
		},
		gen.AlphaString(),
	))

	properties.Property("confidence stays within [0,1]", prop.ForAll(
		func(raw string) bool {
			_, conf, _ := n.Normalize(raw)
			return conf >= 0 && conf <= 1
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
