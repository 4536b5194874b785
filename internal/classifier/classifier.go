package classifier

import (
	"encoding/json"
	"time"
)

// Classifier composes the normalizer, the session-type scorer, and the
// auto-tagger behind one entry point for the backfill runner. Stateless after
// construction; build one per process and inject it explicitly.
type Classifier struct {
	normalizer *Normalizer
	tagger     *AutoTagger
	score      ScoreConfig
}

// Options configures a Classifier.
type Options struct {
	// CustomMappings are user-supplied raw-label corrections.
	CustomMappings map[string]string

	// Score overrides the round-likeness tuning. Zero value means defaults.
	Score ScoreConfig
}

// New creates a Classifier.
func New(opts Options) *Classifier {
	score := opts.Score
	if score.MaxRoundShots == 0 {
		score = DefaultScoreConfig()
	}
	return &Classifier{
		normalizer: NewNormalizer(opts.CustomMappings),
		tagger:     NewAutoTagger(),
		score:      score,
	}
}

// Normalizer exposes the underlying normalizer.
func (c *Classifier) Normalizer() *Normalizer { return c.normalizer }

// Classification is everything the pipeline writes back after an import.
type Classification struct {
	Result      ClassificationResult
	DisplayName string
	AutoTags    []string
	TagsJSON    string
}

// Classify normalizes the raw club tags (when normalize is true), infers the
// session type, evaluates the auto-tag rules (when autoTag is true), and
// renders the display name. Deterministic for identical input.
func (c *Classifier) Classify(rawTags []string, shotCount int, sourceHint string, date *time.Time, normalize, autoTag bool) Classification {
	tags := rawTags
	if normalize {
		tags = c.normalizer.NormalizeAll(rawTags)
	}

	result := DetectSessionType(tags, shotCount, sourceHint, c.score)

	var auto []string
	if autoTag {
		auto = c.tagger.Tags(tags, shotCount, &result)
	}

	tagsJSON := "[]"
	if len(auto) > 0 {
		if b, err := json.Marshal(auto); err == nil {
			tagsJSON = string(b)
		}
	}

	if shotCount < len(tags) {
		shotCount = len(tags)
	}

	return Classification{
		Result:      result,
		DisplayName: DisplayName(date, result, shotCount),
		AutoTags:    auto,
		TagsJSON:    tagsJSON,
	}
}
