package genkit_test

import (
	"bytes"
	"context"
	"testing"

	fgenkit "github.com/firebase/genkit/go/genkit"
	"github.com/habiliai/personachat/config"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/genkit"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualifyModelName(t *testing.T) {
	assert.Equal(t, "openai/gpt-4o-mini", genkit.QualifyModelName("gpt-4o-mini"))
	assert.Equal(t, "anthropic/claude-3.5-haiku", genkit.QualifyModelName(" anthropic/claude-3.5-haiku "))
	assert.Equal(t, "", genkit.QualifyModelName(""))
}

func TestNewGenkitRequiresProviderKey(t *testing.T) {
	logger := mylog.NewLoggerWithWriter(&bytes.Buffer{}, "error", "default")

	_, err := genkit.NewGenkit(context.Background(), &config.ModelConfig{Name: "openai/gpt-4o-mini"}, logger)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestNewGenkitDefinesProviderModels(t *testing.T) {
	logger := mylog.NewLoggerWithWriter(&bytes.Buffer{}, "error", "default")

	g, err := genkit.NewGenkit(context.Background(), &config.ModelConfig{
		OpenAIAPIKey:    "sk-test",
		AnthropicAPIKey: "ak-test",
		Name:            "gpt-4o-mini",
	}, logger)
	require.NoError(t, err)

	assert.NotNil(t, fgenkit.LookupModel(g, "openai", "gpt-4o-mini"))
	assert.NotNil(t, fgenkit.LookupModel(g, "anthropic", "claude-3.5-haiku"))
	assert.Nil(t, fgenkit.LookupModel(g, "xai", "grok-3"))
}

func TestNewGenkitDefinesXAIModels(t *testing.T) {
	logger := mylog.NewLoggerWithWriter(&bytes.Buffer{}, "error", "default")

	g, err := genkit.NewGenkit(context.Background(), &config.ModelConfig{
		XAIAPIKey: "xai-test",
		Name:      "xai/grok-3",
	}, logger)
	require.NoError(t, err)

	assert.NotNil(t, fgenkit.LookupModel(g, "xai", "grok-3"))
	assert.Nil(t, fgenkit.LookupModel(g, "openai", "gpt-4o-mini"))
}
