package blocks

// recencyScorer ranks blocks by their timestamp metadata; newest first.
// Blocks without a timestamp score 0.
type recencyScorer struct{}

func (recencyScorer) score(b Block) float64 {
	return b.Timestamp()
}
