package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Recursive splits text with langchaingo's recursive character splitter,
// which prefers paragraph, then line, then word separators.
type Recursive struct {
	splitter textsplitter.RecursiveCharacter
}

// NewRecursive creates a recursive splitter with the given options.
func NewRecursive(opts ...Option) *Recursive {
	s := newSettings(opts)
	return &Recursive{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(s.chunkSize),
			textsplitter.WithChunkOverlap(s.overlap),
		),
	}
}

// Split splits text and drops whitespace-only pieces.
func (r *Recursive) Split(text string) ([]string, error) {
	parts, err := r.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks, nil
}
