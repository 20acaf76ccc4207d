package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/docchat/config"
	"github/itish2003/docchat/models"
)

// setupTestStore opens a SQLite store in a temporary directory.
func setupTestStore(t *testing.T, dims int) *SQLStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", DSN: dsn}, dims)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func createTestDocument(t *testing.T, s *SQLStore, title string) string {
	t.Helper()
	id, err := s.CreateDocument(context.Background(), models.DocumentMeta{Title: title, Source: "test"})
	require.NoError(t, err)
	return id
}

func insertWithVectors(t *testing.T, s *SQLStore, docID string, contents []string, vectors [][]float32) []string {
	t.Helper()
	ctx := context.Background()
	var ids []string
	err := s.InTx(ctx, func(w Writer) error {
		var err error
		ids, err = w.InsertChunks(ctx, docID, contents)
		if err != nil {
			return err
		}
		m := make(map[string][]float32, len(ids))
		for i, id := range ids {
			m[id] = vectors[i]
		}
		return w.InsertEmbeddings(ctx, m)
	})
	require.NoError(t, err)
	return ids
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"}, 3)
	assert.ErrorIs(t, err, models.ErrStore)
}

func TestOpen_Reopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{DSN: dsn}, 2)
	require.NoError(t, err)
	createTestDocument(t, s, "kept")
	require.NoError(t, s.Close())

	s, err = Open(ctx, config.StoreConfig{DSN: dsn}, 2)
	require.NoError(t, err)
	defer s.Close()
	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSearch_RoundTrip(t *testing.T) {
	s := setupTestStore(t, 3)
	ctx := context.Background()
	docID := createTestDocument(t, s, "letters")

	// "A. B. C." split with size 4 and overlap 1.
	contents := []string{"A. B", "B. C", "C."}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	ids := insertWithVectors(t, s, docID, contents, vectors)

	results, err := s.Search(ctx, []float32{0, 1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	top := results[0]
	assert.Equal(t, ids[1], top.ID)
	assert.Equal(t, "B. C", top.Content)
	assert.Equal(t, 1, top.Idx)
	assert.Equal(t, docID, top.DocumentID)
	assert.Equal(t, "letters", top.DocumentTitle)
	assert.Equal(t, "test", top.DocumentSource)
	assert.InDelta(t, 1.0, top.Similarity, 1e-6)
	assert.False(t, top.CreatedAt.IsZero())

	// The orthogonal chunks tie at 0 and keep insertion order.
	assert.Equal(t, ids[0], results[1].ID)
	assert.Equal(t, ids[2], results[2].ID)
	assert.InDelta(t, 0.0, results[1].Similarity, 1e-6)
}

func TestSearch_OrderAndLimit(t *testing.T) {
	s := setupTestStore(t, 2)
	ctx := context.Background()
	docID := createTestDocument(t, s, "angles")

	insertWithVectors(t, s, docID,
		[]string{"far", "near", "middle", "opposite"},
		[][]float32{{0, 1}, {1, 0.1}, {1, 1}, {-1, 0}})

	results, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].Content)
	assert.Equal(t, "middle", results[1].Content)
	assert.Equal(t, "far", results[2].Content)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)

	all, err := s.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.InDelta(t, -1.0, all[3].Similarity, 1e-6)
}

func TestSearch_ExcludesChunksWithoutEmbeddings(t *testing.T) {
	s := setupTestStore(t, 2)
	ctx := context.Background()
	docID := createTestDocument(t, s, "partial")

	ids, err := s.InsertChunks(ctx, docID, []string{"embedded", "pending"})
	require.NoError(t, err)
	require.NoError(t, s.InsertEmbeddings(ctx, map[string][]float32{ids[0]: {1, 0}}))

	results, err := s.Search(ctx, []float32{1, 0}, 8)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ids[0], results[0].ID)
}

func TestSearch_SkipsZeroVectors(t *testing.T) {
	s := setupTestStore(t, 2)
	ctx := context.Background()
	docID := createTestDocument(t, s, "zero")

	insertWithVectors(t, s, docID, []string{"blank", "real"}, [][]float32{{0, 0}, {1, 0}})

	results, err := s.Search(ctx, []float32{1, 0}, 8)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "real", results[0].Content)
}

func TestComparableSimilarity(t *testing.T) {
	cases := []struct {
		name string
		in   sql.NullFloat64
		want float64
		ok   bool
	}{
		{"null", sql.NullFloat64{}, 0, false},
		{"nan", sql.NullFloat64{Float64: math.NaN(), Valid: true}, 0, false},
		{"valid", sql.NullFloat64{Float64: 0.42, Valid: true}, 0.42, true},
		{"negative", sql.NullFloat64{Float64: -1, Valid: true}, -1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := comparableSimilarity(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSearch_CancelledContext(t *testing.T) {
	s := setupTestStore(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, []float32{1, 0}, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStore)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDimensionMismatch(t *testing.T) {
	s := setupTestStore(t, 3)
	ctx := context.Background()
	docID := createTestDocument(t, s, "dims")
	ids, err := s.InsertChunks(ctx, docID, []string{"x"})
	require.NoError(t, err)

	err = s.InsertEmbeddings(ctx, map[string][]float32{ids[0]: {1, 2}})
	assert.ErrorIs(t, err, models.ErrVectorDimension)

	err = s.InsertEmbeddings(ctx, map[string][]float32{ids[0]: {}})
	assert.ErrorIs(t, err, models.ErrVectorDimension)

	_, err = s.Search(ctx, []float32{1, 2, 3, 4}, 5)
	assert.ErrorIs(t, err, models.ErrVectorDimension)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	s := setupTestStore(t, 2)
	ctx := context.Background()
	docID := createTestDocument(t, s, "atomic")

	err := s.InTx(ctx, func(w Writer) error {
		ids, err := w.InsertChunks(ctx, docID, []string{"one", "two"})
		if err != nil {
			return err
		}
		// Second vector has the wrong size, so the whole unit must roll back.
		return w.InsertEmbeddings(ctx, map[string][]float32{ids[0]: {1, 0}, ids[1]: {1}})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrVectorDimension)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StoreStats{Documents: 1, Chunks: 0, Embeddings: 0}, stats)
}

func TestInTx_WrapsForeignErrors(t *testing.T) {
	s := setupTestStore(t, 2)
	err := s.InTx(context.Background(), func(w Writer) error {
		return errors.New("caller failed")
	})
	assert.ErrorIs(t, err, models.ErrStore)
}

func TestInsertEmbeddings_UnknownChunk(t *testing.T) {
	s := setupTestStore(t, 2)
	err := s.InsertEmbeddings(context.Background(), map[string][]float32{"missing": {1, 0}})
	assert.ErrorIs(t, err, models.ErrStore)
}

func TestDeleteDocument_Cascades(t *testing.T) {
	s := setupTestStore(t, 2)
	ctx := context.Background()
	keep := createTestDocument(t, s, "keep")
	drop := createTestDocument(t, s, "drop")
	insertWithVectors(t, s, keep, []string{"k1"}, [][]float32{{1, 0}})
	insertWithVectors(t, s, drop, []string{"d1", "d2"}, [][]float32{{1, 0}, {0, 1}})

	require.NoError(t, s.DeleteDocument(ctx, drop))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StoreStats{Documents: 1, Chunks: 1, Embeddings: 1}, stats)

	results, err := s.Search(ctx, []float32{1, 0}, 8)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, keep, results[0].DocumentID)

	assert.ErrorIs(t, s.DeleteDocument(ctx, drop), models.ErrNotFound)
}

func TestGetAndListDocuments(t *testing.T) {
	s := setupTestStore(t, 2)
	ctx := context.Background()

	id, err := s.CreateDocument(ctx, models.DocumentMeta{Title: "Guide", Source: "guide.pdf", MimeType: "application/pdf"})
	require.NoError(t, err)
	insertWithVectors(t, s, id, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
	other := createTestDocument(t, s, "Other")

	doc, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Guide", doc.Title)
	assert.Equal(t, "guide.pdf", doc.Source)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Equal(t, 2, doc.ChunkCount)
	assert.False(t, doc.CreatedAt.IsZero())

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	counts := map[string]int{}
	for _, d := range docs {
		counts[d.ID] = d.ChunkCount
	}
	assert.Equal(t, map[string]int{id: 2, other: 0}, counts)

	_, err = s.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChatMessages(t *testing.T) {
	s := setupTestStore(t, 2)
	ctx := context.Background()

	msgs, err := s.GetMessages(ctx, "chat-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	first := []models.Message{{Role: models.RoleUser, Content: "hi"}}
	require.NoError(t, s.SaveMessages(ctx, "chat-1", first))

	second := append(first, models.Message{Role: models.RoleAssistant, Content: "hello"},
		models.Message{Role: models.RoleUser, Content: "what is rag?"})
	require.NoError(t, s.SaveMessages(ctx, "chat-1", second))

	msgs, err = s.GetMessages(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, second, msgs)

	require.NoError(t, s.DeleteChat(ctx, "chat-1"))
	msgs, err = s.GetMessages(ctx, "chat-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.ErrorIs(t, s.DeleteChat(ctx, "chat-1"), models.ErrNotFound)
}
