package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github/itish2003/docchat/chunker"
	"github/itish2003/docchat/embedding"
	"github/itish2003/docchat/logger"
	"github/itish2003/docchat/models"
	"github/itish2003/docchat/vectorstore"
)

// UploadSource is recorded as the source of documents ingested from uploads.
const UploadSource = "File Upload"

// DocumentStore is the part of the vector store the ingestion pipeline needs.
type DocumentStore interface {
	CreateDocument(ctx context.Context, meta models.DocumentMeta) (string, error)
	InTx(ctx context.Context, fn func(w vectorstore.Writer) error) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// IngestResult reports a successfully ingested document.
type IngestResult struct {
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
}

// IngestService turns raw documents into stored, embedded chunks.
type IngestService struct {
	store     DocumentStore
	splitter  chunker.Splitter
	embedder  embedding.Gateway
	extractor TextExtractor
}

// NewIngestService creates the ingestion pipeline.
func NewIngestService(store DocumentStore, splitter chunker.Splitter, embedder embedding.Gateway, extractor TextExtractor) *IngestService {
	return &IngestService{
		store:     store,
		splitter:  splitter,
		embedder:  embedder,
		extractor: extractor,
	}
}

// Ingest validates req, creates the document, splits and embeds its content
// and stores chunks with their embeddings in one transaction. A failure after
// the document row was written leaves that row in place with no chunks.
func (s *IngestService) Ingest(ctx context.Context, req models.IngestRequest) (*IngestResult, error) {
	return s.ingest(ctx, req, "")
}

// IngestFile extracts the text of an uploaded file and ingests it with the
// file name as title. An empty mimeType is inferred from the extension.
func (s *IngestService) IngestFile(ctx context.Context, filename, mimeType string, data []byte) (*IngestResult, error) {
	return s.ingestFile(ctx, filename, UploadSource, mimeType, data, "")
}

func (s *IngestService) ingestFile(ctx context.Context, title, source, mimeType string, data []byte, hash string) (*IngestResult, error) {
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = MimeTypeForPath(title)
	}
	if !IsSupportedMimeType(mimeType) {
		return nil, &models.StageError{
			Stage: models.StageValidate,
			Err:   fmt.Errorf("%w: unsupported file type %q", models.ErrInvalidInput, mimeType),
		}
	}

	text, err := s.extractor.Extract(data, mimeType)
	if err != nil {
		return nil, &models.StageError{Stage: models.StageExtract, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &models.StageError{
			Stage: models.StageExtract,
			Err:   fmt.Errorf("%w: no content extracted from document", models.ErrInvalidInput),
		}
	}

	if hash == "" {
		hash = hashBytes(data)
	}
	return s.ingest(ctx, models.IngestRequest{
		Title:    title,
		Content:  text,
		Source:   source,
		MimeType: normalizeMimeType(mimeType),
	}, hash)
}

func (s *IngestService) ingest(ctx context.Context, req models.IngestRequest, hash string) (*IngestResult, error) {
	title := strings.TrimSpace(req.Title)
	source := strings.TrimSpace(req.Source)
	if title == "" || source == "" || strings.TrimSpace(req.Content) == "" {
		return nil, &models.StageError{
			Stage: models.StageValidate,
			Err:   fmt.Errorf("%w: missing required fields: title, content, source", models.ErrInvalidInput),
		}
	}
	if hash == "" {
		hash = hashBytes([]byte(req.Content))
	}

	logger.Info("SERVICE: Ingesting document %q from %s", title, source)

	docID, err := s.store.CreateDocument(ctx, models.DocumentMeta{
		Title:       title,
		Source:      source,
		MimeType:    req.MimeType,
		ContentHash: hash,
	})
	if err != nil {
		return nil, &models.StageError{Stage: models.StageDocument, Err: err}
	}

	chunks, err := s.splitter.Split(req.Content)
	if err != nil {
		return nil, &models.StageError{Stage: models.StageChunk, Err: err}
	}
	if len(chunks) == 0 {
		return nil, &models.StageError{Stage: models.StageChunk, Err: models.ErrEmptyChunkSet}
	}
	logger.Debug("SERVICE: Split %q into %d chunks", title, len(chunks))

	vectors, err := s.embedder.EmbedMany(ctx, chunks)
	if err != nil {
		if !errors.Is(err, models.ErrEmbeddingService) && !errors.Is(err, models.ErrVectorDimension) {
			err = fmt.Errorf("%w: %w", models.ErrEmbeddingService, err)
		}
		return nil, &models.StageError{Stage: models.StageEmbed, Err: err}
	}
	if len(vectors) != len(chunks) {
		return nil, &models.StageError{
			Stage: models.StageEmbed,
			Err:   fmt.Errorf("%w: got %d embeddings for %d chunks", models.ErrEmbeddingService, len(vectors), len(chunks)),
		}
	}

	err = s.store.InTx(ctx, func(w vectorstore.Writer) error {
		ids, err := w.InsertChunks(ctx, docID, chunks)
		if err != nil {
			return err
		}
		byChunk := make(map[string][]float32, len(ids))
		for i, id := range ids {
			byChunk[id] = vectors[i]
		}
		return w.InsertEmbeddings(ctx, byChunk)
	})
	if err != nil {
		return nil, &models.StageError{Stage: models.StageStore, Err: err}
	}

	logger.Info("SERVICE: Successfully ingested document %q with %d chunks", title, len(chunks))
	return &IngestResult{DocumentID: docID, ChunkCount: len(chunks)}, nil
}

// GetDocument returns one document with its chunk count.
func (s *IngestService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// ListDocuments returns every stored document.
func (s *IngestService) ListDocuments(ctx context.Context) ([]models.Document, error) {
	return s.store.ListDocuments(ctx)
}

// DeleteDocument removes a document together with its chunks and embeddings.
func (s *IngestService) DeleteDocument(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: document id is required", models.ErrInvalidInput)
	}
	return s.store.DeleteDocument(ctx, id)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
