package blocks

import "strings"

var (
	highValueKeywords   = []string{"main", "init", "core", "key", "primary", "essential", "critical"}
	mediumValueKeywords = []string{"helper", "util", "support", "secondary", "additional"}
	lowValueKeywords    = []string{"test", "example", "demo", "temp", "debug"}
)

const (
	highValueWeight   = 0.3
	mediumValueWeight = 0.1
	lowValuePenalty   = 0.1
	headingBonus      = 0.2
)

// semanticScorer adjusts priority by keyword tiers found in the lower-cased
// content. Each keyword counts once. The result never drops below zero.
type semanticScorer struct{}

func (semanticScorer) score(b Block) float64 {
	lower := strings.ToLower(b.Content)
	s := b.Priority
	s += highValueWeight * float64(keywordsPresent(lower, highValueKeywords))
	s += mediumValueWeight * float64(keywordsPresent(lower, mediumValueKeywords))
	s -= lowValuePenalty * float64(keywordsPresent(lower, lowValueKeywords))
	if strings.HasPrefix(strings.TrimLeft(b.Content, " \t\r\n"), "#") {
		s += headingBonus
	}
	if s < 0 {
		return 0
	}
	return s
}

// keywordsPresent counts how many of the keywords occur as substrings of s.
func keywordsPresent(s string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			n++
		}
	}
	return n
}
