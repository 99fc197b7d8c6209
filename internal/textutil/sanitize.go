package textutil

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

// StrictPolicy returns a shared policy that strips every element and attribute.
func StrictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// PlainText strips markup from provider snippets, decodes entities and
// collapses whitespace.
func PlainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = html.UnescapeString(StrictPolicy().Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
