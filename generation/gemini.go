package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github/itish2003/docchat/config"
	"github/itish2003/docchat/logger"
	"github/itish2003/docchat/models"
)

// safetyCategories are blocked at medium probability and above.
var safetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// Gemini is a Generator backed by the Gemini API. The client is created on
// first successful use and shared by all callers; a failed creation is
// retried on the next call.
type Gemini struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

var _ Generator = (*Gemini)(nil)

// NewGemini creates a Gemini generator. No network call is made until the
// first Generate.
func NewGemini(cfg config.GenerationConfig) *Gemini {
	return &Gemini{apiKey: cfg.APIKey, model: cfg.Model}
}

func (g *Gemini) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	if g.apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	g.client = client
	logger.Info("SERVICE: Gemini client initialised for model %s", g.model)
	return client, nil
}

// Generate sends the conversation to Gemini and returns the concatenated text
// of the first candidate.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: could not create gemini client: %v", models.ErrGenerationService, err)
	}

	result, err := client.Models.GenerateContent(ctx, g.model, buildContents(req.Messages), buildConfig(req))
	if err != nil {
		return "", fmt.Errorf("%w: gemini api call failed: %v", models.ErrGenerationService, err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: gemini returned no candidates", models.ErrGenerationService)
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	if responseText.Len() == 0 {
		return "", fmt.Errorf("%w: gemini returned an empty response", models.ErrGenerationService)
	}
	return responseText.String(), nil
}

// buildContents maps conversation turns onto Gemini roles. Assistant turns
// become "model"; empty turns are skipped.
func buildContents(messages []models.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

func buildConfig(req Request) *genai.GenerateContentConfig {
	temperature, topK, topP := req.Temperature, req.TopK, req.TopP

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		TopK:            &topK,
		TopP:            &topP,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.SystemInstruction != "" {
		if contents := genai.Text(req.SystemInstruction); len(contents) > 0 {
			cfg.SystemInstruction = contents[0]
		}
	}
	for _, category := range safetyCategories {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return cfg
}
