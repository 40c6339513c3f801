package config

import (
	"fmt"
	"net"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string
	Token            string
	DefaultBroadcast string
	DefaultWoLPort   int
	LogLevel         string
	LogFormat        string
}

// LoadConfig reads config.yaml from the working directory if present, then
// environment variables, then defaults. AGENT_TOKEN has no default.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("PORT", "3001")
	v.SetDefault("AGENT_TOKEN", "")
	v.SetDefault("DEFAULT_BROADCAST", "255.255.255.255")
	v.SetDefault("DEFAULT_WOL_PORT", 9)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Port:             v.GetString("PORT"),
		Token:            v.GetString("AGENT_TOKEN"),
		DefaultBroadcast: v.GetString("DEFAULT_BROADCAST"),
		DefaultWoLPort:   v.GetInt("DEFAULT_WOL_PORT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("AGENT_TOKEN must be set")
	}
	if net.ParseIP(cfg.DefaultBroadcast) == nil {
		return nil, fmt.Errorf("DEFAULT_BROADCAST %q is not an IP address", cfg.DefaultBroadcast)
	}
	if cfg.DefaultWoLPort < 1 || cfg.DefaultWoLPort > 65535 {
		return nil, fmt.Errorf("DEFAULT_WOL_PORT must be between 1 and 65535, got %d", cfg.DefaultWoLPort)
	}

	return cfg, nil
}
