package engine

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/habiliai/personachat/entity"
	"github.com/mokiat/gog"
)

type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Complete asks the configured model for the next assistant turn of a conversation.
// It does not retry.
func (e *Engine) Complete(
	ctx context.Context,
	systemPrompt string,
	history []entity.Message,
	message string,
) (*Completion, error) {
	msgs := gog.Map(history, toGenkitMessage)
	msgs = append(msgs, ai.NewUserTextMessage(message))

	started := time.Now()
	resp, err := genkit.Generate(
		ctx,
		e.genkit,
		ai.WithModelName(e.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(msgs...),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     e.temperature,
			MaxOutputTokens: e.maxOutputTokens,
		}),
	)
	if err != nil {
		return nil, err
	}

	c := &Completion{
		Text:  resp.Text(),
		Model: e.modelName,
	}
	if resp.Usage != nil {
		c.InputTokens = resp.Usage.InputTokens
		c.OutputTokens = resp.Usage.OutputTokens
	}

	e.logger.Debug("completion done",
		"model", e.modelName,
		"history", len(history),
		"input_tokens", c.InputTokens,
		"output_tokens", c.OutputTokens,
		"elapsed", time.Since(started),
	)

	return c, nil
}

func toGenkitMessage(m entity.Message) *ai.Message {
	if m.Role == entity.RoleAssistant {
		return ai.NewModelTextMessage(m.Content)
	}
	return ai.NewUserTextMessage(m.Content)
}
