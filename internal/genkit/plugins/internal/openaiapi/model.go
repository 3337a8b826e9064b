package openaiapi

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	goopenai "github.com/openai/openai-go"
)

// TextOnly describes chat models used for plain multi-turn text.
var TextOnly = ai.ModelSupports{
	Multiturn:  true,
	SystemRole: true,
}

func DefineModel(g *genkit.Genkit, client *goopenai.Client, labelPrefix, provider, name string) ai.Model {
	caps := TextOnly
	meta := &ai.ModelInfo{
		Label:    labelPrefix + " - " + name,
		Supports: &caps,
	}
	return genkit.DefineModel(
		g,
		provider,
		name,
		meta,
		func(ctx context.Context, req *ai.ModelRequest, _ core.StreamCallback[*ai.ModelResponseChunk]) (*ai.ModelResponse, error) {
			return generate(ctx, client, name, req)
		},
	)
}

func generate(
	ctx context.Context,
	client *goopenai.Client,
	model string,
	input *ai.ModelRequest,
) (*ai.ModelResponse, error) {
	req, err := convertRequest(model, input)
	if err != nil {
		return nil, err
	}

	res, err := client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, err
	}

	r, err := translateResponse(res)
	if err != nil {
		return nil, err
	}
	r.Request = input
	return r, nil
}
