package models

import (
	"errors"
	"fmt"
)

// Errors returned across the ingestion and query pipelines. Callers wrap them
// with detail and classify with errors.Is.
var (
	// ErrUnauthorized indicates the request carries no valid credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput indicates missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmbeddingService indicates the embedding service call failed or
	// returned a malformed payload.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService indicates the language model call failed.
	ErrGenerationService = errors.New("generation service error")

	// ErrEmptyChunkSet indicates chunking produced no chunks.
	ErrEmptyChunkSet = errors.New("no content chunks generated")

	// ErrVectorDimension indicates a vector does not have the expected dimension.
	ErrVectorDimension = errors.New("vector dimension mismatch")

	// ErrStore indicates a persistence failure.
	ErrStore = errors.New("store error")
)

// Ingestion stages reported by StageError.
const (
	StageValidate = "validate"
	StageExtract  = "extract"
	StageDocument = "document"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageStore    = "store"
)

// StageError records which ingestion stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage recorded in err, or "" when err carries none.
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
