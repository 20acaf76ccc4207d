package models

import "time"

// Document is one ingested file or text blob. It owns its chunks.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	MimeType    string    `json:"mimeType"`
	ContentHash string    `json:"contentHash,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ChunkCount  int       `json:"chunkCount"`
}

// DocumentMeta carries the caller-supplied fields of a new Document.
type DocumentMeta struct {
	Title       string
	Source      string
	MimeType    string
	ContentHash string
}

// Chunk is a contiguous slice of a document's text. Idx is the 0-based
// position of the chunk within its document.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Idx        int       `json:"idx"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RetrievedChunk is a Chunk matched by a similarity search, enriched with its
// document's title and source. Similarity is cosine similarity in [-1, 1].
type RetrievedChunk struct {
	Chunk
	DocumentTitle  string  `json:"documentTitle"`
	DocumentSource string  `json:"documentSource"`
	Similarity     float64 `json:"similarity"`
}

// Citation points from a marker in a generated answer back to the chunk that
// supports it.
type Citation struct {
	ID        int    `json:"id"`
	SourceDoc string `json:"source_doc"`
	ChunkID   string `json:"chunk_id"`
	Snippet   string `json:"snippet"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answer is the result of composing a reply for a conversation.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Intent    string     `json:"intent,omitempty"`
	Grounded  bool       `json:"grounded"`
}

// StoreStats summarises the contents of the vector store.
type StoreStats struct {
	Documents  int `json:"documents"`
	Chunks     int `json:"chunks"`
	Embeddings int `json:"embeddings"`
}

// LatestUserMessage returns the content of the last user turn, or "".
func LatestUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
