package config

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Handler string `mapstructure:"handler"`
}
