// Package chunker splits document text into overlapping chunks for embedding.
package chunker

import (
	"fmt"

	"github/itish2003/docchat/config"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default number of characters shared by
// consecutive chunks when a chunk is cut mid-text.
const DefaultChunkOverlap = 150

// Strategy names accepted by New.
const (
	StrategyBoundary  = "boundary"
	StrategyRecursive = "recursive"
)

// Splitter turns a document's text into an ordered list of non-empty chunks.
type Splitter interface {
	Split(text string) ([]string, error)
}

type settings struct {
	chunkSize int
	overlap   int
}

// Option configures a splitter.
type Option func(*settings)

// WithChunkSize sets the chunk size in characters. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(s *settings) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters. Negative values are ignored.
func WithOverlap(overlap int) Option {
	return func(s *settings) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{chunkSize: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(&s)
	}
	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// New returns the splitter selected by cfg.Strategy.
func New(cfg config.ChunkerConfig) (Splitter, error) {
	opts := []Option{WithChunkSize(cfg.Size), WithOverlap(cfg.Overlap)}
	switch cfg.Strategy {
	case "", StrategyBoundary:
		return NewBoundary(opts...), nil
	case StrategyRecursive:
		return NewRecursive(opts...), nil
	default:
		return nil, fmt.Errorf("unknown chunker strategy %q", cfg.Strategy)
	}
}
