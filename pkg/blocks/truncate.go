package blocks

import "strings"

// TruncationMarker is appended as its own line when content had to be cut.
const TruncationMarker = "... [truncated]"

// truncateToFit keeps whole leading lines of b until the next line would push
// the measured size above remaining. It reports false when not even one line
// fits, or when nothing would be cut: the caller's own estimate already says
// the whole block does not fit. The returned block's SizeEstimate is the
// measured size of the cut content and never exceeds remaining.
func truncateToFit(b Block, remaining int, counter Counter) (Block, bool) {
	if remaining <= 0 {
		return Block{}, false
	}

	lines := strings.Split(b.Content, "\n")
	kept := make([]string, 0, len(lines))
	size := 0

	for i, line := range lines {
		candidate := append(kept[:len(kept):len(kept)], line)
		text := strings.Join(candidate, "\n")
		if i < len(lines)-1 {
			text += "\n" + TruncationMarker
		}
		n := counter.Count(text)
		if n > remaining {
			break
		}
		kept = candidate
		size = n
	}

	if len(kept) == 0 || len(kept) == len(lines) {
		return Block{}, false
	}

	out := b.Clone()
	out.Content = strings.Join(kept, "\n") + "\n" + TruncationMarker
	out.SizeEstimate = size
	return out, true
}
