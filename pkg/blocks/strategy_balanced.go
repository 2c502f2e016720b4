package blocks

import "strings"

// recencyScale normalises timestamps into [0, 1].
const recencyScale = 1_000_000.0

var balancedKeywords = []string{"error", "exception", "critical", "main", "key"}

// structuralPrefixes mark content that opens with a heading or a definition.
var structuralPrefixes = []string{"#", "def ", "class ", "function ", "func ", "type ", "interface "}

const (
	balancedRecencyWeight = 0.2
	balancedKeywordWeight = 0.1
	balancedStartBonus    = 0.2
)

// balancedScorer blends priority, recency, a few keywords and structure.
type balancedScorer struct{}

func (balancedScorer) score(b Block) float64 {
	s := b.Priority + balancedRecencyWeight*normalizedRecency(b.Timestamp())
	s += balancedKeywordWeight * float64(keywordsPresent(strings.ToLower(b.Content), balancedKeywords))
	if startsStructured(b.Content) {
		s += balancedStartBonus
	}
	return s
}

func normalizedRecency(ts float64) float64 {
	r := ts / recencyScale
	switch {
	case r > 1:
		return 1
	case r < 0:
		return 0
	default:
		return r
	}
}

func startsStructured(content string) bool {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	for _, p := range structuralPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
