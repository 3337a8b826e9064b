package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
)

const defaultMaxOutputTokens = 1024

// DefineModel creates and registers a new text chat model with Genkit.
func DefineModel(g *genkit.Genkit, client *anthropic.Client, modelName, apiModelName string) ai.Model {
	meta := &ai.ModelInfo{
		Label: labelPrefix + " - " + modelName,
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			SystemRole: true,
		},
	}

	return genkit.DefineModel(
		g,
		provider,
		modelName,
		meta,
		func(ctx context.Context, req *ai.ModelRequest, _ core.StreamCallback[*ai.ModelResponseChunk]) (*ai.ModelResponse, error) {
			return generate(ctx, client, req, apiModelName)
		},
	)
}

func generate(ctx context.Context, client *anthropic.Client, genRequest *ai.ModelRequest, apiModelName string) (*ai.ModelResponse, error) {
	params, err := buildMessageParams(genRequest, apiModelName)
	if err != nil {
		return nil, err
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic message generation failed: %w", err)
	}

	r := translateResponse(resp)
	r.Request = genRequest
	return r, nil
}

func buildMessageParams(genRequest *ai.ModelRequest, apiModelName string) (anthropic.MessageNewParams, error) {
	messages, systems, err := convertMessages(genRequest.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(apiModelName),
		Messages:  messages,
		MaxTokens: defaultMaxOutputTokens,
	}

	for _, system := range systems {
		if strings.TrimSpace(system) == "" {
			continue
		}
		params.System = append(params.System, anthropic.TextBlockParam{
			Text: system,
		})
	}

	if genRequest.Config == nil {
		return params, nil
	}

	jsonBytes, err := json.Marshal(genRequest.Config)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	var config ai.GenerationCommonConfig
	if err := json.Unmarshal(jsonBytes, &config); err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.MaxOutputTokens > 0 {
		params.MaxTokens = int64(config.MaxOutputTokens)
	}
	if config.Temperature > 0 {
		params.Temperature = anthropic.Float(config.Temperature)
	}
	if config.TopP > 0 {
		params.TopP = anthropic.Float(config.TopP)
	}
	if len(config.StopSequences) > 0 {
		params.StopSequences = config.StopSequences
	}

	return params, nil
}

func convertMessages(messages []*ai.Message) ([]anthropic.MessageParam, []string, error) {
	var (
		systems           []string
		anthropicMessages []anthropic.MessageParam
	)

	for _, msg := range messages {
		var role anthropic.MessageParamRole
		switch msg.Role {
		case ai.RoleUser:
			role = anthropic.MessageParamRoleUser
		case ai.RoleModel:
			role = anthropic.MessageParamRoleAssistant
		case ai.RoleSystem:
			for _, part := range msg.Content {
				if part.IsText() && part.Text != "" {
					systems = append(systems, part.Text)
				}
			}
			continue
		default:
			return nil, nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		var blocks []anthropic.ContentBlockParamUnion
		for _, part := range msg.Content {
			if part.IsText() {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		}

		anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
			Role:    role,
			Content: blocks,
		})
	}

	return anthropicMessages, systems, nil
}

func translateResponse(resp *anthropic.Message) *ai.ModelResponse {
	var text strings.Builder
	for _, content := range resp.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}

	r := &ai.ModelResponse{
		Message: ai.NewModelTextMessage(text.String()),
	}

	switch resp.StopReason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		r.FinishReason = ai.FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		r.FinishReason = ai.FinishReasonLength
	default:
		if resp.StopReason != "" {
			r.FinishReason = ai.FinishReasonOther
		}
	}

	r.Usage = &ai.GenerationUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	return r
}
