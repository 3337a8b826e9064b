package openaiapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	goopenai "github.com/openai/openai-go"
)

func convertRequest(model string, input *ai.ModelRequest) (goopenai.ChatCompletionNewParams, error) {
	messages, err := convertMessages(input.Messages)
	if err != nil {
		return goopenai.ChatCompletionNewParams{}, err
	}

	req := goopenai.ChatCompletionNewParams{
		Model:    goopenai.String(model),
		Messages: goopenai.F(messages),
	}

	if input.Config == nil {
		return req, nil
	}

	jsonBytes, err := json.Marshal(input.Config)
	if err != nil {
		return goopenai.ChatCompletionNewParams{}, err
	}
	var c ai.GenerationCommonConfig
	if err := json.Unmarshal(jsonBytes, &c); err != nil {
		return goopenai.ChatCompletionNewParams{}, fmt.Errorf("invalid generation config: %w", err)
	}
	if c.MaxOutputTokens != 0 {
		req.MaxTokens = goopenai.Int(int64(c.MaxOutputTokens))
	}
	if c.Temperature != 0 {
		req.Temperature = goopenai.Float(c.Temperature)
	}
	if c.TopP != 0 {
		req.TopP = goopenai.Float(c.TopP)
	}

	return req, nil
}

func convertMessages(messages []*ai.Message) ([]goopenai.ChatCompletionMessageParamUnion, error) {
	msgs := make([]goopenai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, m := range messages {
		text := joinText(m.Content)
		switch m.Role {
		case ai.RoleSystem:
			msgs = append(msgs, goopenai.SystemMessage(text))
		case ai.RoleUser:
			msgs = append(msgs, goopenai.UserMessage(text))
		case ai.RoleModel:
			msgs = append(msgs, goopenai.AssistantMessage(text))
		default:
			return nil, fmt.Errorf("unsupported role %q", m.Role)
		}
	}

	return msgs, nil
}

func joinText(parts []*ai.Part) string {
	var sb strings.Builder
	for _, p := range parts {
		if p.IsText() {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
