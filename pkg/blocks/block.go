package blocks

import (
	"fmt"
	"strconv"
)

// Metadata keys interpreted by the selector.
const (
	MetaSection   = "section"
	MetaTimestamp = "timestamp"
)

// Block is one candidate unit of content competing for a place in the budget.
// Content is opaque; only Priority, SizeEstimate and the section/timestamp
// metadata keys influence selection.
type Block struct {
	Content      string         `json:"content" yaml:"content"`
	Priority     float64        `json:"priority" yaml:"priority"`
	Source       string         `json:"source,omitempty" yaml:"source,omitempty"`
	SizeEstimate int            `json:"size_estimate" yaml:"size_estimate"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Score is written by the strategy during Select. It has no meaning before.
	Score float64 `json:"score" yaml:"-"`
}

// NewBlock creates a block with an empty metadata map.
func NewBlock(content string, priority float64, source string, size int) Block {
	return Block{
		Content:      content,
		Priority:     priority,
		Source:       source,
		SizeEstimate: size,
		Metadata:     make(map[string]any),
	}
}

// WithSection returns a copy of the block tagged with the given section.
func (b Block) WithSection(section string) Block {
	c := b.Clone()
	c.Metadata[MetaSection] = section
	return c
}

// WithTimestamp returns a copy of the block carrying the given recency signal.
func (b Block) WithTimestamp(ts float64) Block {
	c := b.Clone()
	c.Metadata[MetaTimestamp] = ts
	return c
}

// Clone returns a copy whose metadata map is not shared with b.
func (b Block) Clone() Block {
	c := b
	c.Metadata = make(map[string]any, len(b.Metadata))
	for k, v := range b.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// Section returns the section tag, or "" when the block has none.
func (b Block) Section() string {
	v, ok := b.Metadata[MetaSection]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Timestamp returns the numeric recency signal, or 0 when missing or not numeric.
func (b Block) Timestamp() float64 {
	v, ok := b.Metadata[MetaTimestamp]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// TotalSize sums the size estimates of the given blocks.
func TotalSize(blocks []Block) int {
	total := 0
	for _, b := range blocks {
		total += b.SizeEstimate
	}
	return total
}
