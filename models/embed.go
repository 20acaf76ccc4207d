package models

// EmbedRequest is the body of a request to the embedding service's /embed endpoint.
type EmbedRequest struct {
	Texts []string `json:"texts"`
}

// EmbedResponse holds one vector per input text, in input order.
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}
