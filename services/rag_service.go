package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github/itish2003/docchat/logger"
	"github/itish2003/docchat/models"
)

// RAGService is everything the HTTP and CLI layers need from the backend.
type RAGService interface {
	Ingest(ctx context.Context, req models.IngestRequest) (*IngestResult, error)
	IngestFile(ctx context.Context, filename, mimeType string, data []byte) (*IngestResult, error)
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	DebugRetrieval(ctx context.Context, question string) (*models.RetrievalDiagnostics, error)
	ListDocuments(ctx context.Context) (*models.ListDocumentsResponse, error)
	DeleteDocument(ctx context.Context, id string) error
}

// ContextRetriever finds the chunks relevant to a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, maxResults int) ([]models.RetrievedChunk, error)
	Diagnose(ctx context.Context, question string) (*models.RetrievalDiagnostics, error)
}

// AnswerComposer turns a conversation and its context into an answer.
type AnswerComposer interface {
	Compose(ctx context.Context, messages []models.Message, contextChunks []models.RetrievedChunk) (models.Answer, error)
}

// FallbackFunc builds the answer used when a dependency is unavailable.
type FallbackFunc func(messages []models.Message) models.Answer

// ChatHistory persists conversations by chat id.
type ChatHistory interface {
	GetMessages(ctx context.Context, chatID string) ([]models.Message, error)
	SaveMessages(ctx context.Context, chatID string, messages []models.Message) error
}

// ragServiceImpl holds the dependencies it needs to do its job.
type ragServiceImpl struct {
	ingest    *IngestService
	retriever ContextRetriever
	composer  AnswerComposer
	fallback  FallbackFunc
	history   ChatHistory
}

// NewRAGService wires the ingestion pipeline and the query path together.
// history may be nil, in which case conversations are not persisted.
func NewRAGService(ingest *IngestService, retriever ContextRetriever, composer AnswerComposer, fallback FallbackFunc, history ChatHistory) RAGService {
	return &ragServiceImpl{
		ingest:    ingest,
		retriever: retriever,
		composer:  composer,
		fallback:  fallback,
		history:   history,
	}
}

func (r *ragServiceImpl) Ingest(ctx context.Context, req models.IngestRequest) (*IngestResult, error) {
	return r.ingest.Ingest(ctx, req)
}

func (r *ragServiceImpl) IngestFile(ctx context.Context, filename, mimeType string, data []byte) (*IngestResult, error) {
	return r.ingest.IngestFile(ctx, filename, mimeType, data)
}

// Chat answers the latest user message of req. Embedding, generation and
// vector dimension failures are downgraded to the fallback answer with no
// citations; other failures are returned.
func (r *ragServiceImpl) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	messages, err := validateMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	chatID := strings.TrimSpace(req.ChatID)
	if r.history != nil {
		if chatID == "" {
			chatID = uuid.New().String()
		} else {
			messages = r.withHistory(ctx, chatID, messages)
		}
	}

	query := models.LatestUserMessage(messages)
	logger.Info("SERVICE: Chat query: %q", query)

	answer, err := r.answer(ctx, messages, query)
	if err != nil {
		return nil, err
	}

	if r.history != nil {
		conversation := append(messages, models.Message{Role: models.RoleAssistant, Content: answer.Answer})
		if err := r.history.SaveMessages(ctx, chatID, conversation); err != nil {
			logger.Warn("SERVICE: Failed to save chat %s: %v", chatID, err)
		}
	}

	return &models.ChatResponse{
		Answer:    answer.Answer,
		Citations: answer.Citations,
		ChatID:    chatID,
	}, nil
}

func (r *ragServiceImpl) answer(ctx context.Context, messages []models.Message, query string) (models.Answer, error) {
	chunks, err := r.retriever.Retrieve(ctx, query, 0)
	if err != nil {
		if cerr := cancellation(ctx, err); cerr != nil {
			return models.Answer{}, fmt.Errorf("retrieving context: %w", cerr)
		}
		if isDependencyError(err) {
			logger.Warn("SERVICE: Retrieval unavailable, using fallback answer: %v", err)
			return r.fallback(messages), nil
		}
		return models.Answer{}, fmt.Errorf("retrieving context: %w", err)
	}
	logger.Debug("SERVICE: Retrieved %d context chunks", len(chunks))

	answer, err := r.composer.Compose(ctx, messages, chunks)
	if err != nil {
		if cerr := cancellation(ctx, err); cerr != nil {
			return models.Answer{}, fmt.Errorf("composing answer: %w", cerr)
		}
		if isDependencyError(err) {
			logger.Warn("SERVICE: Generation unavailable, using fallback answer: %v", err)
			return r.fallback(messages), nil
		}
		return models.Answer{}, fmt.Errorf("composing answer: %w", err)
	}
	if answer.Citations == nil {
		answer.Citations = []models.Citation{}
	}
	return answer, nil
}

// withHistory prepends the stored conversation when the client sent only
// its newest message.
func (r *ragServiceImpl) withHistory(ctx context.Context, chatID string, messages []models.Message) []models.Message {
	if len(messages) != 1 {
		return messages
	}
	stored, err := r.history.GetMessages(ctx, chatID)
	if err != nil {
		logger.Warn("SERVICE: Failed to load chat %s: %v", chatID, err)
		return messages
	}
	if len(stored) == 0 {
		return messages
	}
	return append(stored, messages...)
}

func (r *ragServiceImpl) DebugRetrieval(ctx context.Context, question string) (*models.RetrievalDiagnostics, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", models.ErrInvalidInput)
	}
	return r.retriever.Diagnose(ctx, question)
}

func (r *ragServiceImpl) ListDocuments(ctx context.Context) (*models.ListDocumentsResponse, error) {
	docs, err := r.ingest.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return &models.ListDocumentsResponse{Count: len(docs), Documents: docs}, nil
}

func (r *ragServiceImpl) DeleteDocument(ctx context.Context, id string) error {
	logger.Info("SERVICE: Deleting document %s", id)
	return r.ingest.DeleteDocument(ctx, id)
}

func validateMessages(messages []models.Message) ([]models.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: messages array is required", models.ErrInvalidInput)
	}
	out := make([]models.Message, 0, len(messages))
	for i, m := range messages {
		switch m.Role {
		case models.RoleUser, models.RoleAssistant:
		default:
			return nil, fmt.Errorf("%w: message %d has unknown role %q", models.ErrInvalidInput, i, m.Role)
		}
		out = append(out, m)
	}
	if strings.TrimSpace(models.LatestUserMessage(out)) == "" {
		return nil, fmt.Errorf("%w: no user message", models.ErrInvalidInput)
	}
	return out, nil
}

// cancellation returns a non-nil error when err stems from the caller giving
// up rather than from a dependency being down. The result always matches
// context.Canceled or context.DeadlineExceeded.
func cancellation(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return nil
}

func isDependencyError(err error) bool {
	return errors.Is(err, models.ErrEmbeddingService) ||
		errors.Is(err, models.ErrGenerationService) ||
		errors.Is(err, models.ErrVectorDimension)
}
