package coordinator

import (
	"fmt"

	"github.com/kcaldas/blockfit/pkg/blocks"
)

const (
	// DefaultCompletionRatio is the compression ratio DefaultCompletion requires.
	DefaultCompletionRatio = 0.3
	// MinCompressionRatio is the floor an outcome must exceed to validate.
	MinCompressionRatio = 0.1
)

// DefaultCompletion holds once the outcome retains more than
// DefaultCompletionRatio of the original size.
func DefaultCompletion(outcome *blocks.Outcome) bool {
	return outcome != nil && outcome.CompressionRatio > DefaultCompletionRatio
}

// ValidateOutcome returns the reasons an outcome is unacceptable for a
// budget of maxTokens, or nil when it passes every check.
func ValidateOutcome(outcome *blocks.Outcome, maxTokens int) []string {
	if outcome == nil {
		return []string{"no outcome"}
	}
	var reasons []string
	if outcome.OptimizedTokens >= maxTokens {
		reasons = append(reasons, fmt.Sprintf("selected %d tokens, budget is %d", outcome.OptimizedTokens, maxTokens))
	}
	if outcome.BlocksKept < 1 {
		reasons = append(reasons, "no blocks kept")
	}
	if outcome.CompressionRatio <= MinCompressionRatio {
		reasons = append(reasons, fmt.Sprintf("compression ratio %.3f not above %.1f", outcome.CompressionRatio, MinCompressionRatio))
	}
	return reasons
}
