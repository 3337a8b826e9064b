package genkit

import (
	"context"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/genkit"
	"github.com/habiliai/personachat/config"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/genkit/plugins/anthropic"
	"github.com/habiliai/personachat/internal/genkit/plugins/openai"
	"github.com/habiliai/personachat/internal/genkit/plugins/xai"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/jcooky/go-din"
)

const DefaultProvider = "openai"

// QualifyModelName prefixes bare model names with the default provider.
func QualifyModelName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return name
	}
	return DefaultProvider + "/" + name
}

// NewGenkit registers one plugin per configured provider key.
func NewGenkit(ctx context.Context, conf *config.ModelConfig, logger *slog.Logger) (*genkit.Genkit, error) {
	var plugins []genkit.Plugin
	if conf.OpenAIAPIKey != "" {
		plugins = append(plugins, &openai.Plugin{APIKey: conf.OpenAIAPIKey})
	}
	if conf.XAIAPIKey != "" {
		plugins = append(plugins, &xai.Plugin{APIKey: conf.XAIAPIKey})
	}
	if conf.AnthropicAPIKey != "" {
		plugins = append(plugins, &anthropic.Plugin{APIKey: conf.AnthropicAPIKey})
	}
	if len(plugins) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "no model provider key configured; set OPENAI_API_KEY, ANTHROPIC_API_KEY or XAI_API_KEY")
	}

	defaultModel := QualifyModelName(conf.Name)
	g, err := genkit.Init(
		ctx,
		genkit.WithPlugins(plugins...),
		genkit.WithDefaultModel(defaultModel),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to init genkit")
	}

	genkit.RegisterSpanProcessor(g, &loggingSpanProcessor{
		verbose: conf.TraceVerbose,
		logger:  logger,
	})

	logger.Debug("genkit initialized", "plugins", len(plugins), "default_model", defaultModel)

	return g, nil
}

func init() {
	din.RegisterT(func(c *din.Container) (*genkit.Genkit, error) {
		conf, err := din.GetT[*config.ModelConfig](c)
		if err != nil {
			return nil, err
		}
		logger, err := din.Get[*slog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}

		return NewGenkit(c, conf, logger)
	})
}
