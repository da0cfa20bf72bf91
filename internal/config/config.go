package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "twpurge.toml"

// Credential and file fallbacks shared with older .env setups.
const (
	EnvConsumerKey       = "TWD_CONSUMER_KEY"
	EnvConsumerSecret    = "TWD_CONSUMER_SECRET"
	EnvAccessToken       = "TWD_ACCESS_TOKEN"
	EnvAccessTokenSecret = "TWD_ACCESS_TOKEN_SECRET"
	EnvCheckpointFile    = "TWD_CACHE_FILE"
	EnvWhitelistFile     = "TWD_WHITELIST_FILE"
	EnvReportFile        = "TWDI_FILE"
)

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	finish(&cfg)
	return &cfg, nil
}

// LoadOrDefault behaves like Load but a missing file yields a config built
// from the environment and defaults only.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return Default(), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	finish(cfg)
	return cfg
}

func finish(c *Config) {
	expandEnvVars(c)
	applyEnvFallbacks(c)
	applyDefaults(c)
}

// applyDefaults применяет значения по умолчанию
func applyDefaults(c *Config) {
	if c.Twitter.BaseURL == "" {
		c.Twitter.BaseURL = "https://api.twitter.com/1.1"
	}
	if c.Twitter.RequestTimeoutSeconds == 0 {
		c.Twitter.RequestTimeoutSeconds = 30
	}

	if c.Storage.CheckpointFile == "" {
		c.Storage.CheckpointFile = "./cache.json"
	}
	if c.Storage.WhitelistFile == "" {
		c.Storage.WhitelistFile = "./whitelist.json"
	}

	if c.Purge.PageSize == 0 {
		c.Purge.PageSize = 200
	}
	if c.Purge.MaxCutoffPages == 0 {
		c.Purge.MaxCutoffPages = 5
	}
	if c.Purge.PageDelayMS == 0 {
		c.Purge.PageDelayMS = 1000
	}
	if c.Purge.DeleteDelayMS == 0 {
		c.Purge.DeleteDelayMS = 100
	}
	if c.Purge.DeleteAttempts == 0 {
		c.Purge.DeleteAttempts = 4
	}
	if c.Purge.FetchAttempts == 0 {
		c.Purge.FetchAttempts = 3
	}
	if c.Purge.Workers == 0 {
		c.Purge.Workers = 5
	}

	if c.Inactive.PeriodDays == 0 {
		c.Inactive.PeriodDays = 14
	}
	if c.Inactive.ReportFile == "" {
		c.Inactive.ReportFile = "./i-results.json"
	}
	if c.Inactive.Format == "" {
		c.Inactive.Format = "json"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "twpurge"
	}

	if c.Output.Color == "" {
		c.Output.Color = "auto"
	}
}

// applyEnvFallbacks подставляет TWD_* переменные в незаполненные поля
func applyEnvFallbacks(c *Config) {
	fallback(&c.Twitter.ConsumerKey, EnvConsumerKey)
	fallback(&c.Twitter.ConsumerSecret, EnvConsumerSecret)
	fallback(&c.Twitter.AccessToken, EnvAccessToken)
	fallback(&c.Twitter.AccessTokenSecret, EnvAccessTokenSecret)
	fallback(&c.Storage.CheckpointFile, EnvCheckpointFile)
	fallback(&c.Storage.WhitelistFile, EnvWhitelistFile)
	fallback(&c.Inactive.ReportFile, EnvReportFile)
}

func fallback(field *string, key string) {
	if *field == "" {
		*field = os.Getenv(key)
	}
}

// expandEnvVars расширяет переменные окружения в конфигурации
func expandEnvVars(c *Config) {
	for _, field := range []*string{
		&c.Twitter.ConsumerKey,
		&c.Twitter.ConsumerSecret,
		&c.Twitter.AccessToken,
		&c.Twitter.AccessTokenSecret,
		&c.Twitter.BaseURL,
		&c.Storage.CheckpointFile,
		&c.Storage.WhitelistFile,
		&c.Inactive.ReportFile,
		&c.Logging.Output,
		&c.Metrics.Textfile,
	} {
		*field = expandEnv(*field)
	}

	c.Storage.CheckpointFile = expandHome(c.Storage.CheckpointFile)
	c.Storage.WhitelistFile = expandHome(c.Storage.WhitelistFile)
	c.Inactive.ReportFile = expandHome(c.Inactive.ReportFile)
	c.Metrics.Textfile = expandHome(c.Metrics.Textfile)
}

// expandEnv расширяет переменную окружения формата ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if key, defaultVal, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	return os.Getenv(content)
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
