package chunker

import "strings"

// boundaryMinFraction is how far into a window a sentence boundary must lie
// before the window is cut there instead of at its raw end.
const boundaryMinFraction = 0.6

// Boundary cuts text at sentence boundaries when one falls late enough in the
// window, and otherwise at the window end with overlap.
type Boundary struct {
	chunkSize int
	overlap   int
}

// NewBoundary creates a boundary-seeking splitter with the given options.
func NewBoundary(opts ...Option) *Boundary {
	s := newSettings(opts)
	return &Boundary{chunkSize: s.chunkSize, overlap: s.overlap}
}

// ChunkSize returns the effective chunk size.
func (b *Boundary) ChunkSize() int { return b.chunkSize }

// Overlap returns the effective overlap.
func (b *Boundary) Overlap() int { return b.overlap }

// Split splits text into trimmed, non-empty chunks of at most ChunkSize
// characters. Positions are measured in runes.
func (b *Boundary) Split(text string) ([]string, error) {
	runes := []rune(text)
	n := len(runes)
	if n <= b.chunkSize {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}, nil
		}
		return nil, nil
	}

	minCut := int(float64(b.chunkSize) * boundaryMinFraction)
	chunks := make([]string, 0, n/(b.chunkSize-b.overlap)+1)

	for start := 0; start < n; {
		end := min(start+b.chunkSize, n)
		next := end

		if end < n {
			if pos := lastBoundary(runes, start, end); pos > start+minCut {
				end = pos + 1
				next = end
			} else {
				next = end - b.overlap
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = next
	}

	return chunks, nil
}

// lastBoundary returns the absolute index of the last sentence terminator in
// runes[start:end], or -1.
func lastBoundary(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		switch runes[i] {
		case '.', '\n', '?', '!':
			return i
		}
	}
	return -1
}
