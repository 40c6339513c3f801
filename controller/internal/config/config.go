package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	DataFile string
	DBPath   string

	DefaultBroadcast string
	DefaultWoLPort   int

	RelayTimeout    time.Duration
	ProbeTimeout    time.Duration
	MonitorInterval time.Duration
	MonitorMaxDelay time.Duration
	HistoryKeep     int

	AdminUsername string
	AdminPassword string

	RedisEnabled  bool
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	NATSEnabled       bool
	NATSURLs          []string
	NATSToken         string
	NATSSubjectPrefix string
}

// LoadConfig reads config.yaml from the working directory if present, then
// environment variables, then defaults
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DATA_FILE", "./data/state.json")
	v.SetDefault("DB_PATH", "./data/wake.db")
	v.SetDefault("DEFAULT_BROADCAST", "255.255.255.255")
	v.SetDefault("DEFAULT_WOL_PORT", 9)
	v.SetDefault("RELAY_TIMEOUT_SECONDS", 5)
	v.SetDefault("PROBE_TIMEOUT_SECONDS", 3)
	v.SetDefault("MONITOR_INTERVAL_SECONDS", 60)
	v.SetDefault("MONITOR_MAX_DELAY_SECONDS", 900)
	v.SetDefault("HISTORY_KEEP", 1000)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("NATS_ENABLED", false)
	v.SetDefault("NATS_URLS", "nats://localhost:4222")
	v.SetDefault("NATS_TOKEN", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "wol.events")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Port:              v.GetString("PORT"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		DataFile:          v.GetString("DATA_FILE"),
		DBPath:            v.GetString("DB_PATH"),
		DefaultBroadcast:  v.GetString("DEFAULT_BROADCAST"),
		DefaultWoLPort:    v.GetInt("DEFAULT_WOL_PORT"),
		RelayTimeout:      time.Duration(v.GetInt("RELAY_TIMEOUT_SECONDS")) * time.Second,
		ProbeTimeout:      time.Duration(v.GetInt("PROBE_TIMEOUT_SECONDS")) * time.Second,
		MonitorInterval:   time.Duration(v.GetInt("MONITOR_INTERVAL_SECONDS")) * time.Second,
		MonitorMaxDelay:   time.Duration(v.GetInt("MONITOR_MAX_DELAY_SECONDS")) * time.Second,
		HistoryKeep:       v.GetInt("HISTORY_KEEP"),
		AdminUsername:     v.GetString("ADMIN_USERNAME"),
		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
		RedisEnabled:      v.GetBool("REDIS_ENABLED"),
		RedisAddress:      v.GetString("REDIS_ADDRESS"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		NATSEnabled:       v.GetBool("NATS_ENABLED"),
		NATSURLs:          splitList(v.GetString("NATS_URLS")),
		NATSToken:         v.GetString("NATS_TOKEN"),
		NATSSubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
	}

	if cfg.DefaultWoLPort < 1 || cfg.DefaultWoLPort > 65535 {
		return nil, fmt.Errorf("DEFAULT_WOL_PORT must be between 1 and 65535, got %d", cfg.DefaultWoLPort)
	}
	if cfg.DataFile == "" {
		return nil, fmt.Errorf("DATA_FILE must not be empty")
	}

	return cfg, nil
}

// AdminAuthEnabled reports whether /api requires Basic auth
func (c *Config) AdminAuthEnabled() bool {
	return c.AdminPassword != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
