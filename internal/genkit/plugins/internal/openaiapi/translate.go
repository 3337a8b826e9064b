package openaiapi

import (
	"errors"

	"github.com/firebase/genkit/go/ai"
	goopenai "github.com/openai/openai-go"
)

func translateResponse(resp *goopenai.ChatCompletion) (*ai.ModelResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("completion has no choices")
	}
	choice := resp.Choices[0]

	r := &ai.ModelResponse{
		Message: ai.NewModelTextMessage(choice.Message.Content),
		Usage: &ai.GenerationUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}

	switch choice.FinishReason {
	case "stop":
		r.FinishReason = ai.FinishReasonStop
	case "length":
		r.FinishReason = ai.FinishReasonLength
	case "content_filter":
		r.FinishReason = ai.FinishReasonBlocked
	default:
		r.FinishReason = ai.FinishReasonUnknown
	}

	return r, nil
}
