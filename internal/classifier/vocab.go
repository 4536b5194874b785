// Package classifier turns raw portal club labels into a closed vocabulary
// and infers what kind of session a shot-tag sequence represents.
package classifier

import "strings"

// Canonical club labels. Everything the normalizer emits at full confidence
// comes from this set.
const (
	ClubDriver = "Driver"
	ClubPutter = "Putter"

	ClubPW = "PW"
	ClubAW = "AW"
	ClubGW = "GW"
	ClubSW = "SW"
	ClubLW = "LW"
)

// CoarseCategory buckets clubs into the four game areas used by the
// session-type scorer.
type CoarseCategory string

const (
	CategoryLong   CoarseCategory = "long"
	CategoryMid    CoarseCategory = "mid"
	CategoryShort  CoarseCategory = "short"
	CategoryPutter CoarseCategory = "putter"
)

// canonicalClubs is the closed vocabulary, keyed by uppercase label.
var canonicalClubs = map[string]string{}

// displayNames maps canonical labels to human-readable club names, used for
// focus/fitting session names.
var displayNames = map[string]string{
	ClubDriver: "Driver",
	ClubPutter: "Putter",
	ClubPW:     "Pitching Wedge",
	ClubAW:     "Approach Wedge",
	ClubGW:     "Gap Wedge",
	ClubSW:     "Sand Wedge",
	ClubLW:     "Lob Wedge",
}

func init() {
	add := func(label string) { canonicalClubs[strings.ToUpper(label)] = label }

	add(ClubDriver)
	add(ClubPutter)
	for _, w := range []string{ClubPW, ClubAW, ClubGW, ClubSW, ClubLW} {
		add(w)
	}
	for n := '2'; n <= '9'; n++ {
		add(string(n) + "W")
		displayNames[string(n)+"W"] = string(n) + " Wood"
	}
	for n := '2'; n <= '6'; n++ {
		add(string(n) + "H")
		displayNames[string(n)+"H"] = string(n) + " Hybrid"
	}
	for n := '1'; n <= '9'; n++ {
		add(string(n) + "I")
		displayNames[string(n)+"I"] = string(n) + " Iron"
	}
}

// Canonical reports whether label is already canonical (case-insensitive)
// and returns its canonical spelling.
func Canonical(label string) (string, bool) {
	c, ok := canonicalClubs[strings.ToUpper(strings.TrimSpace(label))]
	return c, ok
}

// DisplayClubName returns a readable name for a canonical label. Unknown
// labels pass through unchanged.
func DisplayClubName(canonical string) string {
	if name, ok := displayNames[canonical]; ok {
		return name
	}
	return canonical
}

// Coarse returns the game-area bucket for a canonical label. Non-canonical
// input falls into the mid bucket, which keeps unknown labels from skewing
// the long-game or putter signals.
func Coarse(canonical string) CoarseCategory {
	switch {
	case canonical == ClubPutter:
		return CategoryPutter
	case canonical == ClubDriver:
		return CategoryLong
	case strings.HasSuffix(canonical, "W") && len(canonical) == 2:
		return CategoryLong
	case strings.HasSuffix(canonical, "H") && len(canonical) == 2:
		return CategoryLong
	case isWedge(canonical):
		return CategoryShort
	case strings.HasSuffix(canonical, "I") && len(canonical) == 2:
		n := canonical[0]
		switch {
		case n <= '3':
			return CategoryLong
		case n <= '7':
			return CategoryMid
		default:
			return CategoryShort
		}
	default:
		return CategoryMid
	}
}

// tier is the ordering used for hole-like sequence detection:
// long(0) -> mid(1) -> short(2) -> putter(3).
func tier(canonical string) int {
	switch Coarse(canonical) {
	case CategoryLong:
		return 0
	case CategoryMid:
		return 1
	case CategoryShort:
		return 2
	default:
		return 3
	}
}

func isWedge(canonical string) bool {
	switch canonical {
	case ClubPW, ClubAW, ClubGW, ClubSW, ClubLW:
		return true
	}
	return false
}

// isLongIron reports whether the label is a rarely-carried long iron. Their
// presence is a weak signal of simulated round play.
func isLongIron(canonical string) bool {
	switch canonical {
	case "1I", "2I", "3I":
		return true
	}
	return false
}
