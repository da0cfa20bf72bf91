// Package config loads and validates twpurge configuration.
// It reads a TOML file, expands environment references, falls back to the
// TWD_* variables for credentials and file locations and fills defaults.
//
// Configuration structure:
//   - [twitter]: API credentials, base URL and request pacing
//   - [storage]: checkpoint and whitelist file locations
//   - [purge]: paging, delete pacing, retry and worker settings
//   - [inactive]: inactivity period and report file
//   - [logging]: level, format and output
//   - [metrics]: Prometheus textfile export
//   - [output]: terminal colors
//
// Values can reference the environment with ${VAR} or ${VAR:default}.
// For example: consumer_key = "${TWD_CONSUMER_KEY}"
package config

import "time"

// Config is the complete twpurge configuration.
type Config struct {
	Twitter  TwitterConfig  `toml:"twitter"`
	Storage  StorageConfig  `toml:"storage"`
	Purge    PurgeConfig    `toml:"purge"`
	Inactive InactiveConfig `toml:"inactive"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Output   OutputConfig   `toml:"output"`
}

// TwitterConfig holds the OAuth 1.0a user credentials and API settings.
type TwitterConfig struct {
	ConsumerKey           string `toml:"consumer_key"`
	ConsumerSecret        string `toml:"consumer_secret"`
	AccessToken           string `toml:"access_token"`
	AccessTokenSecret     string `toml:"access_token_secret"`
	BaseURL               string `toml:"base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	MinRequestIntervalMS  int    `toml:"min_request_interval_ms"`
}

// StorageConfig представляет конфигурацию файлов, общих для запусков
type StorageConfig struct {
	CheckpointFile string `toml:"checkpoint_file"`
	WhitelistFile  string `toml:"whitelist_file"`
}

// PurgeConfig tunes the purge pipeline.
// Negative delays disable the corresponding pause.
type PurgeConfig struct {
	PageSize        int  `toml:"page_size"`
	MaxCutoffPages  int  `toml:"max_cutoff_pages"`
	PageDelayMS     int  `toml:"page_delay_ms"`
	DeleteDelayMS   int  `toml:"delete_delay_ms"`
	DeleteAttempts  int  `toml:"delete_attempts"`
	FetchAttempts   int  `toml:"fetch_attempts"`
	Workers         int  `toml:"workers"`
	StopOnShortPage bool `toml:"stop_on_short_page"`
}

// InactiveConfig представляет конфигурацию отчёта о неактивных друзьях
type InactiveConfig struct {
	PeriodDays int    `toml:"period_days"`
	ReportFile string `toml:"report_file"`
	Format     string `toml:"format"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// MetricsConfig configures the Prometheus textfile written at the end of a run.
// An empty textfile disables the export.
type MetricsConfig struct {
	Namespace string `toml:"namespace"`
	Textfile  string `toml:"textfile"`
}

// OutputConfig представляет конфигурацию вывода в терминал
type OutputConfig struct {
	Color string `toml:"color"`
}

// RequestTimeout returns the per-request HTTP timeout.
func (c TwitterConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// MinRequestInterval returns the minimal gap between two API requests.
func (c TwitterConfig) MinRequestInterval() time.Duration {
	return time.Duration(c.MinRequestIntervalMS) * time.Millisecond
}

// PageDelay returns the pause between two collector pages.
func (c PurgeConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMS) * time.Millisecond
}

// DeleteDelay returns the minimal gap between two delete calls.
func (c PurgeConfig) DeleteDelay() time.Duration {
	return time.Duration(c.DeleteDelayMS) * time.Millisecond
}

// Period returns how long a friend may stay silent before being reported.
func (c InactiveConfig) Period() time.Duration {
	return time.Duration(c.PeriodDays) * 24 * time.Hour
}
