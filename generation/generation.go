// Package generation calls the language model that writes answers.
package generation

import (
	"context"

	"github/itish2003/docchat/models"
)

// Request is one generation call: a system instruction, the conversation so
// far, and the sampling parameters.
type Request struct {
	SystemInstruction string
	Messages          []models.Message
	Temperature       float32
	TopK              float32
	TopP              float32
	MaxOutputTokens   int32
}

// Generator produces the model's reply to a Request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
