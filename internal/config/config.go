// Package config loads the bot configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the file leaves fields unset.
const (
	DefaultWikipediaBaseURL = "https://en.wikipedia.org/w/api.php"
	DefaultLookupTimeout    = 10 * time.Second
	DefaultWorkers          = 2
)

// Config is the full bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
}

// TelegramConfig holds transport settings.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// WikipediaConfig holds lookup settings.
type WikipediaConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DispatchConfig holds worker settings.
type DispatchConfig struct {
	Workers int `yaml:"workers"`
}

// Load reads the config file at path, applies environment overrides and
// defaults, and validates the result. A missing file is tolerated when
// the token comes from the environment; a missing token is fatal.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, unmarshalErr)
		}
	case os.IsNotExist(err):
		// Fall through to environment-only configuration.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Wikipedia.BaseURL == "" {
		c.Wikipedia.BaseURL = DefaultWikipediaBaseURL
	}
	if c.Wikipedia.TimeoutSeconds <= 0 {
		c.Wikipedia.TimeoutSeconds = int(DefaultLookupTimeout / time.Second)
	}
	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = DefaultWorkers
	}
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("no telegram token: set telegram.token in the config file or TELEGRAM_TOKEN in the environment")
	}
	return nil
}

// LookupTimeout returns the Wikipedia call timeout as a duration.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Wikipedia.TimeoutSeconds) * time.Second
}
