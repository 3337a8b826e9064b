package config

import (
	"os"
	"strings"

	"github.com/habiliai/personachat/errors"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var settings = []struct {
	key string
	env string
	def any
}{
	{"log.level", "LOG_LEVEL", "debug"},
	{"log.handler", "LOG_HANDLER", "default"},
	{"database.path", "DATABASE_PATH", "personachat.db"},
	{"database.auto_migrate", "DATABASE_AUTO_MIGRATE", true},
	{"model.openai_api_key", "OPENAI_API_KEY", ""},
	{"model.anthropic_api_key", "ANTHROPIC_API_KEY", ""},
	{"model.xai_api_key", "XAI_API_KEY", ""},
	{"model.name", "MODEL_NAME", "openai/gpt-4o-mini"},
	{"model.temperature", "MODEL_TEMPERATURE", 0.7},
	{"model.max_output_tokens", "MODEL_MAX_OUTPUT_TOKENS", 1024},
	{"model.trace_verbose", "MODEL_TRACE_VERBOSE", false},
	{"server.host", "HOST", "0.0.0.0"},
	{"server.port", "PORT", 8000},
	{"server.rate_limit_rps", "RATE_LIMIT_RPS", 5.0},
	{"server.rate_limit_burst", "RATE_LIMIT_BURST", 10},
	{"persona.file", "PERSONA_FILE", ""},
	{"chat.max_history_messages", "CHAT_MAX_HISTORY_MESSAGES", 0},
}

// Resolve builds the configuration from defaults, dotenv files and the process environment,
// in increasing order of precedence. In testing mode .env.test (or $ENV_TEST_FILE) is loaded too.
func Resolve(testing bool) (*Config, error) {
	if err := loadDotEnv(testing); err != nil {
		return nil, err
	}

	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, errors.Wrapf(err, "failed to bind %s", s.env)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c Config
	if err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "failed to load config: %v", err)
	}

	if c.Server.Port <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "invalid port %d", c.Server.Port)
	}
	if c.Chat.MaxHistoryMessages < 0 {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "chat.max_history_messages must not be negative")
	}

	return &c, nil
}

func loadDotEnv(testing bool) error {
	files := []string{".env"}
	if testing {
		filename := ".env.test"
		if v := os.Getenv("ENV_TEST_FILE"); v != "" {
			filename = v
		}
		// test values win over .env
		files = append([]string{filename}, files...)
	}

	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return errors.Wrapf(err, "failed to load %s", file)
		}
	}

	return nil
}
