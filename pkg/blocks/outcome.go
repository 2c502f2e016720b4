package blocks

// Outcome is the result of one Select call. It is not modified after Select returns.
type Outcome struct {
	OptimizedContent   string   `json:"optimized_content"`
	OriginalTokens     int      `json:"original_tokens"`
	OptimizedTokens    int      `json:"optimized_tokens"`
	CompressionRatio   float64  `json:"compression_ratio"`
	BlocksKept         int      `json:"blocks_kept"`
	BlocksDropped      int      `json:"blocks_dropped"`
	BlocksTruncated    int      `json:"blocks_truncated"`
	StrategyUsed       Strategy `json:"strategy_used"`
	PreservedStructure bool     `json:"preserved_structure"`

	// Kept holds the surviving blocks in input order, truncated copies included.
	Kept []Block `json:"kept,omitempty"`
}

// compressionRatio is selected/original; an empty input counts as uncompressed.
func compressionRatio(selected, original int) float64 {
	if original <= 0 {
		return 1.0
	}
	return float64(selected) / float64(original)
}
