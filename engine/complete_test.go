package engine_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/habiliai/personachat/config"
	"github.com/habiliai/personachat/engine"
	"github.com/habiliai/personachat/entity"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingModel struct {
	last  *ai.ModelRequest
	reply string
	err   error
}

func (m *recordingModel) generate(_ context.Context, req *ai.ModelRequest, _ core.StreamCallback[*ai.ModelResponseChunk]) (*ai.ModelResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &ai.ModelResponse{
		Message:      ai.NewModelTextMessage(m.reply),
		FinishReason: ai.FinishReasonStop,
		Usage:        &ai.GenerationUsage{InputTokens: 42, OutputTokens: 7},
	}, nil
}

func newTestEngine(t *testing.T, model *recordingModel) *engine.Engine {
	ctx := context.Background()
	g, err := genkit.Init(ctx)
	require.NoError(t, err)

	genkit.DefineModel(g, "test", "recorder", &ai.ModelInfo{
		Label:    "test - recorder",
		Supports: &ai.ModelSupports{Multiturn: true, SystemRole: true},
	}, model.generate)

	return engine.NewEngine(
		mylog.NewLoggerWithWriter(&bytes.Buffer{}, "error", "default"),
		g,
		&config.ModelConfig{Name: "test/recorder", Temperature: 0.4, MaxOutputTokens: 300},
	)
}

func TestCompleteBuildsConversation(t *testing.T) {
	model := &recordingModel{reply: "Focus on retention first."}
	e := newTestEngine(t, model)

	history := []entity.Message{
		{Role: entity.RoleUser, Content: "act like my mentor"},
		{Role: entity.RoleAssistant, Content: "Happy to help."},
	}
	c, err := e.Complete(context.Background(), "You are an experienced business mentor.", history, "how can I scale?")
	require.NoError(t, err)

	assert.Equal(t, "Focus on retention first.", c.Text)
	assert.Equal(t, "test/recorder", c.Model)
	assert.Equal(t, 42, c.InputTokens)
	assert.Equal(t, 7, c.OutputTokens)

	require.NotNil(t, model.last)
	roles := make([]ai.Role, 0, len(model.last.Messages))
	for _, m := range model.last.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []ai.Role{ai.RoleSystem, ai.RoleUser, ai.RoleModel, ai.RoleUser}, roles)
	assert.Equal(t, "You are an experienced business mentor.", model.last.Messages[0].Text())
	assert.Equal(t, "how can I scale?", model.last.Messages[3].Text())
}

func TestCompleteReturnsModelError(t *testing.T) {
	model := &recordingModel{err: errors.New("upstream unavailable")}
	e := newTestEngine(t, model)

	_, err := e.Complete(context.Background(), "p", nil, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestModelNameDefaultsToOpenAI(t *testing.T) {
	e := engine.NewEngine(nil, nil, &config.ModelConfig{Name: "gpt-4o-mini"})
	assert.Equal(t, "openai/gpt-4o-mini", e.ModelName())
}
