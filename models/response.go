package models

// IngestResponse is returned after a document has been ingested.
type IngestResponse struct {
	Success     bool   `json:"success"`
	DocumentID  string `json:"documentId"`
	ChunksCount int    `json:"chunksCount"`
	Message     string `json:"message"`
}

// ChatResponse is returned by POST /api/v1/chat.
type ChatResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	ChatID    string     `json:"chatId,omitempty"`
}

// ListDocumentsResponse is the structure for the response of GET /api/v1/documents.
type ListDocumentsResponse struct {
	Count     int        `json:"count"`
	Documents []Document `json:"documents"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CandidateDiagnostic describes one search candidate and why it was kept or dropped.
type CandidateDiagnostic struct {
	ChunkID              string  `json:"chunkId"`
	DocumentID           string  `json:"documentId"`
	DocumentTitle        string  `json:"documentTitle"`
	DocumentSource       string  `json:"documentSource"`
	ChunkIndex           int     `json:"chunkIndex"`
	Content              string  `json:"content"`
	Similarity           float64 `json:"similarity"`
	SimilarityPercentage string  `json:"similarityPercentage"`
	Selected             bool    `json:"selected"`
	Rejection            string  `json:"rejection,omitempty"`
}

// RetrievalSummary aggregates a diagnostic run.
type RetrievalSummary struct {
	TotalCandidates     int      `json:"totalCandidates"`
	SelectedChunks      int      `json:"selectedChunks"`
	AverageSimilarity   float64  `json:"averageSimilarity"`
	MinSimilarity       float64  `json:"minSimilarity"`
	MaxSimilarity       float64  `json:"maxSimilarity"`
	SimilarityThreshold float64  `json:"similarityThreshold"`
	HasRelevantContent  bool     `json:"hasRelevantContent"`
	DocumentsReferenced []string `json:"documentsReferenced"`
}

// RetrievalDiagnostics is the response of POST /api/v1/retrieval/debug.
type RetrievalDiagnostics struct {
	Question        string                `json:"question"`
	Dimensions      int                   `json:"dimensions"`
	EmbeddingSample []float32             `json:"embeddingSample"`
	Candidates      []CandidateDiagnostic `json:"candidates"`
	Summary         RetrievalSummary      `json:"summary"`
	Store           StoreStats            `json:"store"`
}
