package config

import (
	"github.com/jcooky/go-din"
)

type (
	Config struct {
		Log      LogConfig      `mapstructure:"log"`
		Database DatabaseConfig `mapstructure:"database"`
		Model    ModelConfig    `mapstructure:"model"`
		Server   ServerConfig   `mapstructure:"server"`
		Persona  PersonaConfig  `mapstructure:"persona"`
		Chat     ChatConfig     `mapstructure:"chat"`
	}

	DatabaseConfig struct {
		// Path is the SQLite database file. ":memory:" keeps everything in process.
		Path        string `mapstructure:"path"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
	}

	ModelConfig struct {
		OpenAIAPIKey    string  `mapstructure:"openai_api_key"`
		AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
		XAIAPIKey       string  `mapstructure:"xai_api_key"`
		Name            string  `mapstructure:"name"`
		Temperature     float64 `mapstructure:"temperature"`
		MaxOutputTokens int     `mapstructure:"max_output_tokens"`
		TraceVerbose    bool    `mapstructure:"trace_verbose"`
	}

	ServerConfig struct {
		Host           string  `mapstructure:"host"`
		Port           int     `mapstructure:"port"`
		RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
		RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	}

	PersonaConfig struct {
		// File optionally points to a YAML file with extra persona templates.
		File string `mapstructure:"file"`
	}

	ChatConfig struct {
		// MaxHistoryMessages limits how many stored messages are sent to the model.
		// Zero sends the whole thread.
		MaxHistoryMessages int `mapstructure:"max_history_messages"`
	}
)

func (c *ModelConfig) HasProvider() bool {
	return c.OpenAIAPIKey != "" || c.AnthropicAPIKey != "" || c.XAIAPIKey != ""
}

func init() {
	din.RegisterT(func(c *din.Container) (*Config, error) {
		return Resolve(c.Env == din.EnvTest)
	})
	din.RegisterT(func(c *din.Container) (*LogConfig, error) {
		conf, err := din.GetT[*Config](c)
		if err != nil {
			return nil, err
		}
		return &conf.Log, nil
	})
	din.RegisterT(func(c *din.Container) (*ModelConfig, error) {
		conf, err := din.GetT[*Config](c)
		if err != nil {
			return nil, err
		}
		return &conf.Model, nil
	})
}
