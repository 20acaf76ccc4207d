// Package retriever turns a query into a ranked, filtered set of context
// chunks: embed, over-fetch from the store, then apply the quality floor and
// the per-document diversity cap.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github/itish2003/docchat/config"
	"github/itish2003/docchat/embedding"
	"github/itish2003/docchat/logger"
	"github/itish2003/docchat/models"
)

// Store is the part of the vector store the retriever needs.
type Store interface {
	Search(ctx context.Context, query []float32, limit int) ([]models.RetrievedChunk, error)
	Stats(ctx context.Context) (models.StoreStats, error)
}

// Options holds the filtering thresholds.
type Options struct {
	MaxResults       int
	Candidates       int
	MinSimilarity    float64
	MinContentLength int
	MinCleanLength   int
	MaxPerDocument   int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		MaxResults:       5,
		Candidates:       8,
		MinSimilarity:    0.15,
		MinContentLength: 50,
		MinCleanLength:   30,
		MaxPerDocument:   2,
	}
}

// OptionsFromConfig maps the retrieval config section onto Options.
func OptionsFromConfig(cfg config.RetrievalConfig) Options {
	return Options{
		MaxResults:       cfg.MaxResults,
		Candidates:       cfg.Candidates,
		MinSimilarity:    cfg.MinSimilarity,
		MinContentLength: cfg.MinContentLength,
		MinCleanLength:   cfg.MinCleanLength,
		MaxPerDocument:   cfg.MaxPerDocument,
	}
}

// Rejection reasons reported by Select and Diagnose.
const (
	RejectLowSimilarity = "similarity below threshold"
	RejectTooShort      = "content too short"
	RejectMostlyBlank   = "content mostly whitespace"
	RejectDocumentCap   = "document already has maximum chunks"
	RejectResultLimit   = "result limit reached"
)

// Retriever produces context chunks for a query.
type Retriever struct {
	embedder embedding.Gateway
	store    Store
	opts     Options
}

// New creates a Retriever.
func New(embedder embedding.Gateway, store Store, opts Options) *Retriever {
	def := DefaultOptions()
	if opts.MaxResults <= 0 {
		opts.MaxResults = def.MaxResults
	}
	if opts.MaxPerDocument <= 0 {
		opts.MaxPerDocument = def.MaxPerDocument
	}
	return &Retriever{embedder: embedder, store: store, opts: opts}
}

// Options returns the effective thresholds.
func (r *Retriever) Options() Options { return r.opts }

// Retrieve returns at most maxResults chunks relevant to query, most similar
// first. maxResults <= 0 uses the configured default. The result may be
// empty; an empty result means nothing cleared the relevance threshold.
func (r *Retriever) Retrieve(ctx context.Context, query string, maxResults int) ([]models.RetrievedChunk, error) {
	if maxResults <= 0 {
		maxResults = r.opts.MaxResults
	}

	vec, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := r.store.Search(ctx, vec, r.candidateLimit(maxResults))
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}

	selected, _ := Select(candidates, maxResults, r.opts)
	logger.Debug("RETRIEVER: %d candidates, %d selected for %q", len(candidates), len(selected), query)
	return selected, nil
}

// candidateLimit over-fetches so filtering does not starve the result set.
func (r *Retriever) candidateLimit(maxResults int) int {
	return max(r.opts.Candidates, maxResults)
}

// Select applies the quality filter and the diversity cap to candidates.
// It returns the accepted chunks in similarity-descending order and, for
// every candidate in that same order, the reason it was rejected ("" when
// accepted).
func Select(candidates []models.RetrievedChunk, maxResults int, opts Options) ([]models.RetrievedChunk, []string) {
	ordered := make([]int, len(candidates))
	for i := range ordered {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		return candidates[ordered[a]].Similarity > candidates[ordered[b]].Similarity
	})

	reasons := make([]string, len(candidates))
	perDocument := make(map[string]int)
	selected := make([]models.RetrievedChunk, 0, maxResults)

	for _, i := range ordered {
		c := candidates[i]
		switch {
		case c.Similarity < opts.MinSimilarity:
			reasons[i] = RejectLowSimilarity
		case utf8.RuneCountInString(c.Content) < opts.MinContentLength:
			reasons[i] = RejectTooShort
		case utf8.RuneCountInString(collapseWhitespace(c.Content)) < opts.MinCleanLength:
			reasons[i] = RejectMostlyBlank
		case len(selected) >= maxResults:
			reasons[i] = RejectResultLimit
		case perDocument[c.DocumentID] >= opts.MaxPerDocument:
			reasons[i] = RejectDocumentCap
		default:
			perDocument[c.DocumentID]++
			selected = append(selected, c)
		}
	}
	return selected, reasons
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
