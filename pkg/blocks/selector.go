package blocks

import (
	"sort"

	"github.com/kcaldas/blockfit/pkg/logging"
)

// Selector packs blocks into a token budget. It is stateless between calls
// and safe for concurrent use as long as its Counter is.
type Selector struct {
	counter Counter
	logger  logging.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithCounter sets the counter used to measure truncated content.
func WithCounter(c Counter) SelectorOption {
	return func(s *Selector) {
		if c != nil {
			s.counter = c
		}
	}
}

// WithLogger sets the selector's logger.
func WithLogger(l logging.Logger) SelectorOption {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSelector creates a selector using the chars/4 heuristic by default.
func NewSelector(opts ...SelectorOption) *Selector {
	s := &Selector{
		counter: HeuristicCounter{},
		logger:  logging.NewComponentLogger("selector"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Counter returns the counter the selector measures with.
func (s *Selector) Counter() Counter {
	return s.counter
}

// Select scores the blocks with strategy, greedily packs them in score order
// under maxTokens and renders the survivors in their original order.
//
// The input slice and its blocks are not modified; scoring happens on
// clones. An empty input or a zero budget yields an empty outcome.
func (s *Selector) Select(input []Block, maxTokens int, strategy Strategy, preserveStructure bool) Outcome {
	if maxTokens < 0 {
		maxTokens = 0
	}
	resolved, known := ParseStrategy(string(strategy))
	if !known && strategy != "" {
		s.logger.Debug("unknown strategy, using default", "strategy", string(strategy), "default", string(resolved))
	}
	p := planFor(resolved)

	if len(input) == 0 || maxTokens == 0 {
		original := TotalSize(input)
		return Outcome{
			OriginalTokens:     original,
			CompressionRatio:   compressionRatio(0, original),
			BlocksDropped:      len(input),
			StrategyUsed:       resolved,
			PreservedStructure: preserveStructure,
		}
	}

	scored := make([]Block, len(input))
	for i, b := range input {
		scored[i] = b.Clone()
		scored[i].Score = p.scorer.score(scored[i])
	}

	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scored[order[a]].Score > scored[order[b]].Score
	})

	accepted := make(map[int]Block, len(scored))
	total := 0
	truncated := 0
	for _, idx := range order {
		b := scored[idx]
		if total+b.SizeEstimate <= maxTokens {
			accepted[idx] = b
			total += b.SizeEstimate
			continue
		}

		if p.truncate.allows(b.Score, total, maxTokens) {
			remaining := maxTokens - total
			if cut, ok := truncateToFit(b, remaining, s.counter); ok {
				accepted[idx] = cut
				total += cut.SizeEstimate
				truncated++
				s.logger.Debug("truncated block to fit budget",
					"index", idx, "original_size", b.SizeEstimate, "truncated_size", cut.SizeEstimate, "remaining", remaining)
			}
		}
		break
	}

	kept := make([]Block, 0, len(accepted))
	for i := range scored {
		if b, ok := accepted[i]; ok {
			kept = append(kept, b)
		}
	}

	original := TotalSize(input)
	return Outcome{
		OptimizedContent:   assemble(kept, preserveStructure),
		OriginalTokens:     original,
		OptimizedTokens:    total,
		CompressionRatio:   compressionRatio(total, original),
		BlocksKept:         len(kept),
		BlocksDropped:      len(input) - len(kept),
		BlocksTruncated:    truncated,
		StrategyUsed:       resolved,
		PreservedStructure: preserveStructure,
		Kept:               kept,
	}
}
