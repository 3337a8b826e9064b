package engine

import (
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/habiliai/personachat/config"
	genkitinternal "github.com/habiliai/personachat/internal/genkit"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/jcooky/go-din"
)

type (
	// Engine produces persona replies through genkit.
	Engine struct {
		logger *slog.Logger
		genkit *genkit.Genkit

		modelName       string
		temperature     float64
		maxOutputTokens int
	}
)

func NewEngine(
	logger *slog.Logger,
	genkit *genkit.Genkit,
	conf *config.ModelConfig,
) *Engine {
	return &Engine{
		logger:          logger,
		genkit:          genkit,
		modelName:       genkitinternal.QualifyModelName(conf.Name),
		temperature:     conf.Temperature,
		maxOutputTokens: conf.MaxOutputTokens,
	}
}

func (e *Engine) ModelName() string {
	return e.modelName
}

func init() {
	din.RegisterT(func(c *din.Container) (*Engine, error) {
		logger, err := din.Get[*slog.Logger](c, mylog.Key)
		if err != nil {
			return nil, err
		}
		conf, err := din.GetT[*config.ModelConfig](c)
		if err != nil {
			return nil, err
		}
		g, err := din.GetT[*genkit.Genkit](c)
		if err != nil {
			return nil, err
		}

		return NewEngine(logger, g, conf), nil
	})
}
