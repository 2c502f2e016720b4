package blocks

// priorityScorer ranks blocks by their caller-assigned priority alone.
type priorityScorer struct{}

func (priorityScorer) score(b Block) float64 {
	return b.Priority
}
