package blocks

import "strings"

// Strategy names a scoring rule used to rank blocks before packing.
type Strategy string

const (
	StrategyPriority   Strategy = "priority"
	StrategyRecency    Strategy = "recency"
	StrategyImportance Strategy = "importance"
	StrategySemantic   Strategy = "semantic"
	StrategyBalanced   Strategy = "balanced"
)

// DefaultStrategy is used whenever a strategy name is not recognised.
const DefaultStrategy = StrategyBalanced

// Strategies returns every supported strategy in a stable order.
func Strategies() []Strategy {
	return []Strategy{
		StrategyPriority,
		StrategyRecency,
		StrategyImportance,
		StrategySemantic,
		StrategyBalanced,
	}
}

// ParseStrategy resolves a strategy name. Unknown names resolve to the
// balanced strategy and report known=false.
func ParseStrategy(name string) (s Strategy, known bool) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case StrategyPriority:
		return StrategyPriority, true
	case StrategyRecency:
		return StrategyRecency, true
	case StrategyImportance:
		return StrategyImportance, true
	case StrategySemantic:
		return StrategySemantic, true
	case StrategyBalanced:
		return StrategyBalanced, true
	default:
		return DefaultStrategy, false
	}
}

func (s Strategy) String() string {
	return string(s)
}

// scorer assigns a score to a single block.
type scorer interface {
	score(b Block) float64
}

// truncationRule decides whether an overflowing block may be cut down to fit.
// A nil rule disables the fallback.
type truncationRule struct {
	// minScore must be strictly exceeded by the block's score.
	minScore float64
	// fillRatio bounds the running total: truncation only happens while
	// total < maxTokens*fillRatio.
	fillRatio float64
}

func (r *truncationRule) allows(score float64, total, maxTokens int) bool {
	if r == nil {
		return false
	}
	return score > r.minScore && float64(total) < float64(maxTokens)*r.fillRatio
}

// plan binds a scorer to its truncation rule.
type plan struct {
	scorer   scorer
	truncate *truncationRule
}

// planFor is total over Strategy: anything unrecognised gets the balanced plan.
func planFor(s Strategy) plan {
	switch s {
	case StrategyPriority:
		return plan{scorer: priorityScorer{}, truncate: &truncationRule{minScore: 0.7, fillRatio: 0.9}}
	case StrategyRecency:
		return plan{scorer: recencyScorer{}}
	case StrategyImportance:
		return plan{scorer: importanceScorer{}, truncate: &truncationRule{minScore: 0.8, fillRatio: 0.9}}
	case StrategySemantic:
		return plan{scorer: semanticScorer{}, truncate: &truncationRule{minScore: 0.8, fillRatio: 0.9}}
	default:
		return plan{scorer: balancedScorer{}, truncate: &truncationRule{minScore: 0.8, fillRatio: 0.8}}
	}
}
