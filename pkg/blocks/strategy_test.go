package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies() {
		got, known := ParseStrategy(string(s))
		assert.True(t, known)
		assert.Equal(t, s, got)
	}

	got, known := ParseStrategy("  Priority ")
	assert.True(t, known)
	assert.Equal(t, StrategyPriority, got)

	got, known = ParseStrategy("fancy")
	assert.False(t, known)
	assert.Equal(t, StrategyBalanced, got)
}

func TestPriorityScorer(t *testing.T) {
	assert.Equal(t, 0.42, priorityScorer{}.score(Block{Priority: 0.42}))
}

func TestRecencyScorer(t *testing.T) {
	assert.Equal(t, 1700.0, recencyScorer{}.score(NewBlock("x", 0.9, "", 1).WithTimestamp(1700)))
	assert.Equal(t, 0.0, recencyScorer{}.score(NewBlock("x", 0.9, "", 1)))

	b := NewBlock("x", 0.9, "", 1)
	b.Metadata[MetaTimestamp] = "not a number"
	assert.Equal(t, 0.0, recencyScorer{}.score(b))
}

func TestImportanceScorer(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"plain", "nothing to see here", 0.5},
		{"error words each count", "error: critical failure", 0.8},
		{"todo marker", "TODO tidy this", 0.6},
		{"warning", "Note the warning below", 0.7},
		{"code fence with definition", "```go\nfunc main() {}\n```", 1.0},
		{"bare fence", "```\nplain\n```", 0.8},
		{"python def", "def handler(event):\n    pass", 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := importanceScorer{}.score(Block{Content: tt.content, Priority: 0.5})
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSemanticScorer(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		priority float64
		want     float64
	}{
		{"tiers combine", "main core helper test", 0.5, 1.1},
		{"keyword counted once", "main main main", 0.5, 0.8},
		{"heading bonus", "  # Overview", 0.5, 0.7},
		{"case insensitive", "CRITICAL path", 0.5, 0.8},
		{"floored at zero", "test demo temp", 0.05, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := semanticScorer{}.score(Block{Content: tt.content, Priority: tt.priority})
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestBalancedScorer(t *testing.T) {
	b := NewBlock("func main has key error", 0.5, "", 10).WithTimestamp(500_000)
	assert.InDelta(t, 1.1, balancedScorer{}.score(b), 1e-9)

	// recency saturates at 1
	b = NewBlock("plain", 0.5, "", 10).WithTimestamp(5_000_000)
	assert.InDelta(t, 0.7, balancedScorer{}.score(b), 1e-9)

	assert.InDelta(t, 0.5, balancedScorer{}.score(Block{Content: "plain", Priority: 0.5}), 1e-9)
}

func TestTruncationRule(t *testing.T) {
	var none *truncationRule
	assert.False(t, none.allows(10, 0, 100))

	r := &truncationRule{minScore: 0.7, fillRatio: 0.9}
	assert.True(t, r.allows(0.8, 50, 100))
	assert.False(t, r.allows(0.7, 50, 100), "score must exceed the minimum")
	assert.False(t, r.allows(0.8, 90, 100), "total must stay under the fill ratio")
}

func TestPlanFor_RecencyNeverTruncates(t *testing.T) {
	assert.Nil(t, planFor(StrategyRecency).truncate)
	assert.NotNil(t, planFor(StrategyPriority).truncate)
	assert.Equal(t, planFor(StrategyBalanced), planFor("unknown"))
}
