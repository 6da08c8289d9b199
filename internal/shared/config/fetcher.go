package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FetcherConfig contains all configuration for the history fetcher.
type FetcherConfig struct {
	History HistoryConfig `mapstructure:"history"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Fetcher FetcherParams `mapstructure:"fetcher"`
	Workers int           `mapstructure:"workers"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// HistoryConfig describes how to reach the job history server.
type HistoryConfig struct {
	Addr      string        `mapstructure:"addr"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
}

// AuthConfig selects the authentication handshake used by sessions.
type AuthConfig struct {
	Type string `mapstructure:"type"`
	User string `mapstructure:"user"`
}

// FetcherParams is the free-form parameter map handed to the fetcher.
type FetcherParams struct {
	Params map[string]string `mapstructure:"params"`
}

// MetricsConfig contains the Prometheus listener configuration.
// An empty Addr disables the listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoadFetcher loads the fetcher configuration from the given path.
// If configPath is empty, it looks for fetcher.yaml in the config/ directory.
// A .env file in the working directory is loaded first; environment variables
// with MRHISTORY_ prefix override config file values.
func LoadFetcher(configPath string) (*FetcherConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	v.SetDefault("history.addr", "localhost:19888")
	v.SetDefault("history.timeout", 30*time.Second)
	v.SetDefault("history.rate_limit", 0)
	v.SetDefault("auth.type", "simple")
	v.SetDefault("auth.user", "")
	v.SetDefault("fetcher.params", map[string]string{"sampling_enabled": "true"})
	v.SetDefault("workers", 4)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("fetcher")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("MRHISTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg FetcherConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values viper cannot enforce on its own.
func (c *FetcherConfig) Validate() error {
	if c.History.Addr == "" {
		return fmt.Errorf("history.addr is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}
	if c.History.RateLimit < 0 {
		return fmt.Errorf("history.rate_limit must not be negative")
	}
	switch c.Auth.Type {
	case "none":
	case "simple":
		if c.Auth.User == "" {
			c.Auth.User = os.Getenv("USER")
		}
	default:
		return fmt.Errorf("unsupported auth.type: %q", c.Auth.Type)
	}
	return nil
}
