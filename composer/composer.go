// Package composer builds the prompt for a conversation, calls the generator
// and turns its reply into an answer with normalized inline citations.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github/itish2003/docchat/config"
	"github/itish2003/docchat/generation"
	"github/itish2003/docchat/logger"
	"github/itish2003/docchat/models"
)

// Composer answers conversations, grounded in context chunks when there are any.
type Composer struct {
	generator generation.Generator
	params    config.GenerationConfig
}

// New creates a Composer. params supplies the sampling settings and the
// per-intent output budgets.
func New(generator generation.Generator, params config.GenerationConfig) *Composer {
	return &Composer{generator: generator, params: params}
}

// Compose answers the latest user message in messages. The answer is grounded
// when contextChunks is non-empty and the message is not a greeting.
//
// If ctx is already done, Compose returns ctx.Err() without calling the
// generator. Once the call has started it is not cancelled.
func (c *Composer) Compose(ctx context.Context, messages []models.Message, contextChunks []models.RetrievedChunk) (models.Answer, error) {
	userMessage := models.LatestUserMessage(messages)
	if strings.TrimSpace(userMessage) == "" {
		return models.Answer{}, fmt.Errorf("%w: no user message", models.ErrInvalidInput)
	}

	intent := Classify(userMessage)
	grounded := len(contextChunks) > 0 && intent != IntentGreeting

	var citations []models.Citation
	var sources []models.RetrievedChunk
	if grounded {
		citations, sources = BuildCitations(contextChunks)
	}
	template := selectTemplate(intent, grounded)

	req := generation.Request{
		SystemInstruction: systemInstruction(template, sources),
		Messages:          messages,
		Temperature:       c.params.Temperature,
		TopK:              c.params.TopK,
		TopP:              c.params.TopP,
		MaxOutputTokens:   c.maxOutputTokens(intent),
	}

	if err := ctx.Err(); err != nil {
		return models.Answer{}, err
	}

	logger.Debug("COMPOSER: intent=%s template=%s sources=%d", intent, template, len(sources))
	text, err := c.generator.Generate(context.WithoutCancel(ctx), req)
	if err != nil {
		if errors.Is(err, models.ErrGenerationService) {
			return models.Answer{}, err
		}
		return models.Answer{}, fmt.Errorf("%w: %v", models.ErrGenerationService, err)
	}

	answer := models.Answer{
		Answer:    text,
		Citations: []models.Citation{},
		Intent:    string(intent),
		Grounded:  grounded,
	}
	switch {
	case grounded:
		answer.Answer = NormalizeCitations(text, len(citations))
		answer.Citations = citations
	case intent == IntentQuestion:
		answer.Answer = text + Disclaimer
	}
	return answer, nil
}

func (c *Composer) maxOutputTokens(intent Intent) int32 {
	budgets := c.params.MaxOutputTokens
	switch intent {
	case IntentSummary:
		return budgets.Summary
	case IntentQuestion:
		return budgets.Question
	case IntentGreeting:
		return budgets.Greeting
	default:
		return budgets.General
	}
}
