package classifier

// TagContext is the evidence a tag rule evaluates against.
type TagContext struct {
	Tags      []string
	ShotCount int
	Result    *ClassificationResult
}

// TagRule is one independent predicate. ok=false means the rule does not
// apply; rules must not fail the evaluation as a whole, so a rule missing
// its optional context simply declines.
type TagRule struct {
	Name  string
	Apply func(ctx *TagContext) (tag string, ok bool)
}

// AutoTagger evaluates an ordered rule list against a session's tag multiset
// and shot count. Every matching rule contributes its tag.
type AutoTagger struct {
	rules []TagRule
}

// NewAutoTagger creates a tagger with the default rule set.
func NewAutoTagger() *AutoTagger {
	return &AutoTagger{rules: defaultTagRules()}
}

// Tags returns every tag whose rule matched, in rule order.
func (a *AutoTagger) Tags(tags []string, shotCount int, result *ClassificationResult) []string {
	ctx := &TagContext{Tags: tags, ShotCount: shotCount, Result: result}
	if ctx.ShotCount < len(tags) {
		ctx.ShotCount = len(tags)
	}

	var out []string
	for _, rule := range a.rules {
		if tag, ok := rule.Apply(ctx); ok {
			out = append(out, tag)
		}
	}
	return out
}

func defaultTagRules() []TagRule {
	return []TagRule{
		{
			Name: "sim-round",
			Apply: func(ctx *TagContext) (string, bool) {
				if ctx.Result != nil && ctx.Result.Category == CategorySimRound {
					return "sim-round", true
				}
				return "", false
			},
		},
		{
			Name: "dominant-category",
			Apply: func(ctx *TagContext) (string, bool) {
				cat, share := topCoarseShare(ctx.Tags)
				if share < 0.7 || len(ctx.Tags) == 0 {
					return "", false
				}
				switch cat {
				case CategoryLong:
					return "long-game-focus", true
				case CategoryMid:
					return "mid-game-focus", true
				case CategoryShort:
					return "short-game-focus", true
				default:
					return "putting-focus", true
				}
			},
		},
		{
			Name: "full-variety",
			Apply: func(ctx *TagContext) (string, bool) {
				seen := map[CoarseCategory]bool{}
				for _, t := range ctx.Tags {
					seen[Coarse(t)] = true
				}
				if len(seen) == 4 {
					return "full-bag", true
				}
				return "", false
			},
		},
		{
			Name: "high-volume",
			Apply: func(ctx *TagContext) (string, bool) {
				if ctx.ShotCount >= 100 {
					return "high-volume", true
				}
				return "", false
			},
		},
		{
			Name: "low-volume",
			Apply: func(ctx *TagContext) (string, bool) {
				if ctx.ShotCount > 0 && ctx.ShotCount <= 20 {
					return "quick-session", true
				}
				return "", false
			},
		},
		{
			Name: "wedge-work",
			Apply: func(ctx *TagContext) (string, bool) {
				if len(ctx.Tags) == 0 {
					return "", false
				}
				wedges := 0
				for _, t := range ctx.Tags {
					if isWedge(t) {
						wedges++
					}
				}
				if float64(wedges)/float64(len(ctx.Tags)) >= 0.5 {
					return "wedge-work", true
				}
				return "", false
			},
		},
		{
			Name: "putting-practice",
			Apply: func(ctx *TagContext) (string, bool) {
				if len(ctx.Tags) == 0 {
					return "", false
				}
				putts := 0
				for _, t := range ctx.Tags {
					if Coarse(t) == CategoryPutter {
						putts++
					}
				}
				if float64(putts)/float64(len(ctx.Tags)) >= 0.3 {
					return "putting-practice", true
				}
				return "", false
			},
		},
	}
}

func topCoarseShare(tags []string) (CoarseCategory, float64) {
	if len(tags) == 0 {
		return CategoryMid, 0
	}
	counts := map[CoarseCategory]int{}
	for _, t := range tags {
		counts[Coarse(t)]++
	}
	var best CoarseCategory
	bestCount := 0
	for c, n := range counts {
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	return best, float64(bestCount) / float64(len(tags))
}

// RuleNames lists the configured rules in evaluation order.
func (a *AutoTagger) RuleNames() []string {
	names := make([]string, len(a.rules))
	for i, r := range a.rules {
		names[i] = r.Name
	}
	return names
}
