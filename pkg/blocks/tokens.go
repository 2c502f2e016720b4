package blocks

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Counter measures content in budget units.
type Counter interface {
	Count(content string) int
}

// EstimateTokens provides a conservative token estimate for a string using
// the chars/4 heuristic, rounded up.
func EstimateTokens(content string) int {
	if len(content) == 0 {
		return 0
	}
	return (len(content) + 3) / 4
}

// HeuristicCounter counts with EstimateTokens.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(content string) int {
	return EstimateTokens(content)
}

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTiktokenCounter loads the named encoding, or DefaultEncoding when name is empty.
func NewTiktokenCounter(name string) (*TiktokenCounter, error) {
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("get encoding %s: %w", name, err)
	}
	return &TiktokenCounter{encoding: enc, name: name}, nil
}

// NewTiktokenCounterForModel picks the encoding registered for model,
// falling back to DefaultEncoding for unknown models.
func NewTiktokenCounterForModel(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return NewTiktokenCounter(DefaultEncoding)
	}
	return &TiktokenCounter{encoding: enc, name: model}, nil
}

func (c *TiktokenCounter) Count(content string) int {
	if content == "" {
		return 0
	}
	return len(c.encoding.Encode(content, nil, nil))
}

// Name returns the encoding or model the counter was built for.
func (c *TiktokenCounter) Name() string {
	return c.name
}

// NewCounter returns a tiktoken counter for the encoding, or the heuristic
// counter when the encoding cannot be loaded (offline, unknown name).
func NewCounter(encoding string) Counter {
	if encoding == "" || encoding == "heuristic" {
		return HeuristicCounter{}
	}
	c, err := NewTiktokenCounter(encoding)
	if err != nil {
		return HeuristicCounter{}
	}
	return c
}
