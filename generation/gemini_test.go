package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github/itish2003/docchat/config"
	"github/itish2003/docchat/models"
)

func TestBuildContents(t *testing.T) {
	contents := buildContents([]models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi there"},
		{Role: models.RoleUser, Content: "   "},
		{Role: models.RoleUser, Content: "why is the sky blue"},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "hi there", contents[1].Parts[0].Text)
	assert.Equal(t, "why is the sky blue", contents[2].Parts[0].Text)
}

func TestBuildConfig(t *testing.T) {
	cfg := buildConfig(Request{
		SystemInstruction: "Answer from context.",
		Temperature:       0.8,
		TopK:              40,
		TopP:              0.95,
		MaxOutputTokens:   2000,
	})

	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.8, *cfg.Temperature, 1e-6)
	assert.InDelta(t, 40, *cfg.TopK, 1e-6)
	assert.InDelta(t, 0.95, *cfg.TopP, 1e-6)
	assert.Equal(t, int32(2000), cfg.MaxOutputTokens)

	require.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.SystemInstruction.Parts, 1)
	assert.Equal(t, "Answer from context.", cfg.SystemInstruction.Parts[0].Text)

	require.Len(t, cfg.SafetySettings, 4)
	for _, s := range cfg.SafetySettings {
		assert.Equal(t, genai.HarmBlockThresholdBlockMediumAndAbove, s.Threshold)
	}
}

func TestBuildConfig_NoSystemInstruction(t *testing.T) {
	assert.Nil(t, buildConfig(Request{}).SystemInstruction)
}

func TestGemini_MissingAPIKey(t *testing.T) {
	g := NewGemini(config.GenerationConfig{Model: "gemini-1.5-flash"})
	_, err := g.Generate(context.Background(), Request{Messages: []models.Message{{Role: "user", Content: "hi"}}})
	assert.ErrorIs(t, err, models.ErrGenerationService)

	_, err = g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, models.ErrGenerationService)
}

func TestGemini_ClientInitRetriedAfterFailure(t *testing.T) {
	g := NewGemini(config.GenerationConfig{Model: "gemini-1.5-flash"})
	_, err := g.getClient(context.Background())
	require.Error(t, err)
	assert.Nil(t, g.client)

	g.apiKey = "test-key"
	client, err := g.getClient(context.Background())
	require.NoError(t, err)
	require.NotNil(t, client)

	again, err := g.getClient(context.Background())
	require.NoError(t, err)
	assert.Same(t, client, again)
}
