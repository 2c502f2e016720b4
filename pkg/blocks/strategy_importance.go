package blocks

import (
	"regexp"
	"strings"
)

// importancePatterns are matched case-insensitively; every match adds to the score.
var importancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(error|exception|fail|critical)`),
	regexp.MustCompile(`(?i)\b(todo|fixme|xxx)\b`),
	regexp.MustCompile(`(?i)\b(important|note|warning)\b`),
	regexp.MustCompile("(?i)```(python|py|javascript|js|typescript|ts|go|golang|java|rust|ruby|bash|sh|shell|sql|c|cpp|csharp|yaml|json)\\b"),
	regexp.MustCompile(`(?im)^\s*(def|class|function|func)\s+\w+`),
}

const (
	importanceMatchWeight = 0.1
	codeFenceBonus        = 0.3
	codeFence             = "```"
)

// importanceScorer boosts priority by signals that usually mark content a
// reader cannot afford to lose: errors, TODOs, warnings, code and definitions.
type importanceScorer struct{}

func (importanceScorer) score(b Block) float64 {
	s := b.Priority + importanceMatchWeight*float64(countImportanceMatches(b.Content))
	if strings.Contains(b.Content, codeFence) {
		s += codeFenceBonus
	}
	return s
}

func countImportanceMatches(content string) int {
	n := 0
	for _, re := range importancePatterns {
		n += len(re.FindAllStringIndex(content, -1))
	}
	return n
}
