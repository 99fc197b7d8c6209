package hub

import (
	"context"
	"strings"
	"unicode"
)

var positiveTerms = map[string]struct{}{
	"love": {}, "loved": {}, "great": {}, "excellent": {}, "amazing": {}, "awesome": {},
	"useful": {}, "helpful": {}, "recommend": {}, "recommended": {}, "best": {}, "easy": {},
	"growth": {}, "growing": {}, "surge": {}, "boom": {}, "success": {}, "successful": {},
	"raises": {}, "raised": {}, "funding": {}, "launch": {}, "launches": {}, "innovative": {},
	"profitable": {}, "popular": {}, "win": {}, "wins": {}, "good": {}, "fantastic": {},
}

var negativeTerms = map[string]struct{}{
	"hate": {}, "hated": {}, "terrible": {}, "awful": {}, "bad": {}, "worst": {},
	"useless": {}, "broken": {}, "scam": {}, "expensive": {}, "overpriced": {}, "bug": {},
	"bugs": {}, "lawsuit": {}, "layoffs": {}, "decline": {}, "declining": {}, "shutdown": {},
	"bankrupt": {}, "bankruptcy": {}, "fails": {}, "failed": {}, "failure": {}, "fraud": {},
	"complaint": {}, "complaints": {}, "disappointing": {}, "slow": {}, "risk": {}, "recall": {},
}

// LexiconClassifier labels text by counting positive and negative terms.
// It is the fallback when no AI classifier is configured or reachable.
type LexiconClassifier struct{}

func (LexiconClassifier) Classify(_ context.Context, texts []string) ([]Tone, error) {
	out := make([]Tone, len(texts))
	for i, t := range texts {
		out[i] = LexiconTone(t)
	}
	return out, nil
}

// LexiconTone labels a single text.
func LexiconTone(text string) Tone {
	var pos, neg int
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if _, ok := positiveTerms[w]; ok {
			pos++
		}
		if _, ok := negativeTerms[w]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return TonePositive
	case neg > pos:
		return ToneNegative
	default:
		return ToneNeutral
	}
}
