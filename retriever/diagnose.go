package retriever

import (
	"context"
	"fmt"

	"github/itish2003/docchat/models"
)

const embeddingSampleSize = 5

// Diagnose runs the retrieval steps for question and reports every candidate
// with its similarity and, when dropped, why.
func (r *Retriever) Diagnose(ctx context.Context, question string) (*models.RetrievalDiagnostics, error) {
	vec, err := r.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := r.store.Search(ctx, vec, r.candidateLimit(r.opts.MaxResults))
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}
	selected, reasons := Select(candidates, r.opts.MaxResults, r.opts)

	stats, err := r.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store stats: %w", err)
	}

	diag := &models.RetrievalDiagnostics{
		Question:        question,
		Dimensions:      len(vec),
		EmbeddingSample: vec[:min(embeddingSampleSize, len(vec))],
		Candidates:      make([]models.CandidateDiagnostic, 0, len(candidates)),
		Store:           stats,
	}

	summary := models.RetrievalSummary{
		TotalCandidates:     len(candidates),
		SelectedChunks:      len(selected),
		SimilarityThreshold: r.opts.MinSimilarity,
		HasRelevantContent:  len(selected) > 0,
		DocumentsReferenced: []string{},
	}
	seenTitles := make(map[string]bool)
	var total float64
	for i, c := range candidates {
		diag.Candidates = append(diag.Candidates, models.CandidateDiagnostic{
			ChunkID:              c.ID,
			DocumentID:           c.DocumentID,
			DocumentTitle:        c.DocumentTitle,
			DocumentSource:       c.DocumentSource,
			ChunkIndex:           c.Idx,
			Content:              c.Content,
			Similarity:           c.Similarity,
			SimilarityPercentage: fmt.Sprintf("%.1f%%", c.Similarity*100),
			Selected:             reasons[i] == "",
			Rejection:            reasons[i],
		})

		total += c.Similarity
		if i == 0 || c.Similarity < summary.MinSimilarity {
			summary.MinSimilarity = c.Similarity
		}
		if i == 0 || c.Similarity > summary.MaxSimilarity {
			summary.MaxSimilarity = c.Similarity
		}
	}
	if len(candidates) > 0 {
		summary.AverageSimilarity = total / float64(len(candidates))
	}
	for _, c := range selected {
		if !seenTitles[c.DocumentTitle] {
			seenTitles[c.DocumentTitle] = true
			summary.DocumentsReferenced = append(summary.DocumentsReferenced, c.DocumentTitle)
		}
	}
	diag.Summary = summary
	return diag, nil
}
