package classify

import (
	"strings"

	"github.com/jmartell/docintel/constants"
)

// Classifier scores documents against a weighted signal table. It is a pure
// function of (filename, text) with no IO and no failure path: absence of
// signal degrades to Generic, never to an error.
type Classifier struct {
	rules    []Rule
	maxScore map[constants.DocumentType]float32
}

// New builds a classifier over the given rule table. Per-type maxima are
// precomputed so confidence normalization is O(1) at classify time.
func New(rules []Rule) *Classifier {
	maxScore := make(map[constants.DocumentType]float32)
	for _, r := range rules {
		maxScore[r.Type] += r.Weight
	}
	return &Classifier{rules: rules, maxScore: maxScore}
}

// NewDefault builds a classifier over DefaultRules.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

type typeScore struct {
	score         float32
	filenameMatch bool
}

// Classify returns the winning document type and a confidence in [0,1].
// Ties are broken by filename-signal presence, then by constants.TypePriority.
// No match at all yields (Generic, 0).
func (c *Classifier) Classify(filename, text string) (constants.DocumentType, float32) {
	name := normalizeFilename(filename)
	body := strings.ToLower(text)

	scores := make(map[constants.DocumentType]*typeScore)
	for _, r := range c.rules {
		var hit bool
		switch r.Scope {
		case ScopeFilename:
			hit = strings.Contains(name, r.Signal)
		case ScopeText:
			hit = strings.Contains(body, r.Signal)
		}
		if !hit {
			continue
		}
		ts := scores[r.Type]
		if ts == nil {
			ts = &typeScore{}
			scores[r.Type] = ts
		}
		ts.score += r.Weight
		if r.Scope == ScopeFilename {
			ts.filenameMatch = true
		}
	}

	if len(scores) == 0 {
		return constants.Generic, 0
	}

	var best constants.DocumentType
	var bestTS *typeScore
	for t, ts := range scores {
		if bestTS == nil || better(t, ts, best, bestTS) {
			best, bestTS = t, ts
		}
	}

	conf := bestTS.score / c.maxScore[best]
	if conf > 1 {
		conf = 1
	}
	return best, conf
}

// better reports whether candidate (t, ts) beats the current best.
func better(t constants.DocumentType, ts *typeScore, best constants.DocumentType, bestTS *typeScore) bool {
	if ts.score != bestTS.score {
		return ts.score > bestTS.score
	}
	if ts.filenameMatch != bestTS.filenameMatch {
		return ts.filenameMatch
	}
	return constants.PriorityRank(t) < constants.PriorityRank(best)
}

// normalizeFilename lowercases and strips separators so signals match
// "DL_Front-2.jpg" and "dlfront2.jpg" alike.
func normalizeFilename(filename string) string {
	name := strings.ToLower(filename)
	for _, sep := range []string{"_", "-", " "} {
		name = strings.ReplaceAll(name, sep, "")
	}
	return name
}
