package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/docchat/chunker"
	"github/itish2003/docchat/config"
	"github/itish2003/docchat/models"
	"github/itish2003/docchat/vectorstore"
)

// keywordEmbedder maps text onto one of three axes by keyword so similarity
// is predictable: "sky" texts, "cat" texts, everything else.
type keywordEmbedder struct {
	err   error
	calls int
}

func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "sky"):
		return []float32{1, 0, 0}
	case strings.Contains(lower, "cat"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func (e *keywordEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return keywordVector(text), nil
}

func (e *keywordEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = keywordVector(text)
	}
	return out, nil
}

func openTestStore(t *testing.T, dims int) *vectorstore.SQLStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "services.db")
	store, err := vectorstore.Open(context.Background(), config.StoreConfig{Driver: "sqlite", DSN: dsn}, dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestIngestService(t *testing.T, store *vectorstore.SQLStore, embedder *keywordEmbedder) *IngestService {
	t.Helper()
	splitter := chunker.NewBoundary(chunker.WithChunkSize(4), chunker.WithOverlap(1))
	return NewIngestService(store, splitter, embedder, NewDocumentExtractor(""))
}

func TestIngest_Success(t *testing.T) {
	store := openTestStore(t, 3)
	svc := newTestIngestService(t, store, &keywordEmbedder{})
	ctx := context.Background()

	result, err := svc.Ingest(ctx, models.IngestRequest{Title: "d", Content: "A. B. C.", Source: "test"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.DocumentID)
	assert.Equal(t, 3, result.ChunkCount)

	doc, err := svc.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "d", doc.Title)
	assert.Equal(t, "test", doc.Source)
	assert.Equal(t, 3, doc.ChunkCount)
	assert.NotEmpty(t, doc.ContentHash)

	hits, err := store.Search(ctx, []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for _, hit := range hits {
		assert.InDelta(t, 1.0, hit.Similarity, 1e-6)
	}
	assert.Equal(t, 0, hits[0].Idx)
}

func TestIngest_Validation(t *testing.T) {
	store := openTestStore(t, 3)
	embedder := &keywordEmbedder{}
	svc := newTestIngestService(t, store, embedder)

	cases := []models.IngestRequest{
		{Title: "", Content: "text", Source: "s"},
		{Title: "t", Content: "   ", Source: "s"},
		{Title: "t", Content: "text", Source: " "},
	}
	for _, req := range cases {
		_, err := svc.Ingest(context.Background(), req)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Equal(t, models.StageValidate, models.FailedStage(err))
	}

	docs, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Zero(t, embedder.calls)
}

func TestIngest_EmbeddingFailureKeepsDocumentWithoutChunks(t *testing.T) {
	store := openTestStore(t, 3)
	svc := newTestIngestService(t, store, &keywordEmbedder{err: errors.New("connection refused")})
	ctx := context.Background()

	_, err := svc.Ingest(ctx, models.IngestRequest{Title: "d", Content: "A. B. C.", Source: "test"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrEmbeddingService)
	assert.Equal(t, models.StageEmbed, models.FailedStage(err))
	assert.Contains(t, err.Error(), "embed stage failed")

	docs, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 0, docs[0].ChunkCount)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Chunks)
	assert.Equal(t, 0, stats.Embeddings)
}

func TestIngest_StoreFailureRollsBackChunks(t *testing.T) {
	// The store expects 4 dimensions, the embedder produces 3.
	store := openTestStore(t, 4)
	svc := newTestIngestService(t, store, &keywordEmbedder{})
	ctx := context.Background()

	_, err := svc.Ingest(ctx, models.IngestRequest{Title: "d", Content: "A. B. C.", Source: "test"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrVectorDimension)
	assert.Equal(t, models.StageStore, models.FailedStage(err))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 0, stats.Chunks)
}

func TestIngestFile(t *testing.T) {
	store := openTestStore(t, 3)
	svc := newTestIngestService(t, store, &keywordEmbedder{})
	ctx := context.Background()

	result, err := svc.IngestFile(ctx, "notes.md", "", []byte("# Notes\nThe cat sat."))
	require.NoError(t, err)
	assert.Positive(t, result.ChunkCount)

	doc, err := svc.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", doc.Title)
	assert.Equal(t, UploadSource, doc.Source)
	assert.Equal(t, MimeMarkdown, doc.MimeType)
}

func TestIngestFile_Errors(t *testing.T) {
	store := openTestStore(t, 3)
	svc := newTestIngestService(t, store, &keywordEmbedder{})
	ctx := context.Background()

	_, err := svc.IngestFile(ctx, "report.docx", "", []byte("data"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, models.StageValidate, models.FailedStage(err))

	_, err = svc.IngestFile(ctx, "empty.txt", "text/plain", []byte("  \n "))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, models.StageExtract, models.FailedStage(err))

	_, err = svc.IngestFile(ctx, "broken.pdf", MimePDF, []byte("not a pdf"))
	require.Error(t, err)
	assert.Equal(t, models.StageExtract, models.FailedStage(err))

	docs, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteDocument(t *testing.T) {
	store := openTestStore(t, 3)
	svc := newTestIngestService(t, store, &keywordEmbedder{})
	ctx := context.Background()

	result, err := svc.Ingest(ctx, models.IngestRequest{Title: "d", Content: "The sky.", Source: "test"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(ctx, result.DocumentID))
	assert.ErrorIs(t, svc.DeleteDocument(ctx, result.DocumentID), models.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteDocument(ctx, ""), models.ErrInvalidInput)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StoreStats{}, stats)
}
