package models

// IngestRequest is the JSON body of POST /api/v1/ingest.
type IngestRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	MimeType string `json:"mimeType"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	ChatID   string    `json:"chatId,omitempty"`
}

// DebugRequest is the body of POST /api/v1/retrieval/debug.
type DebugRequest struct {
	Question string `json:"question"`
}
