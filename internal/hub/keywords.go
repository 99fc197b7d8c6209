package hub

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minKeywordLen is exclusive: idea words must be longer than this.
const minKeywordLen = 3

// NormalizeKeywords derives the keyword set for an input. Idea words longer
// than three characters are kept individually; target markets, audience
// profiles and competitor hints are kept as whole lower-cased phrases.
// Order of first occurrence is preserved and duplicates are dropped.
func NormalizeKeywords(in InputDescriptor) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for _, word := range strings.Fields(in.Idea) {
		w := strings.ToLower(strings.TrimFunc(word, isKeywordPunct))
		if utf8.RuneCountInString(w) > minKeywordLen {
			add(w)
		}
	}
	for _, group := range [][]string{in.TargetMarkets, in.AudienceProfiles, in.CompetitorHints} {
		for _, phrase := range group {
			add(strings.ToLower(strings.TrimSpace(phrase)))
		}
	}
	return out
}

func isKeywordPunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
