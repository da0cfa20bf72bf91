package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrConfigInvalid marks a configuration that cannot start a run.
var ErrConfigInvalid = errors.New("invalid configuration")

const minCredentialLength = 10

// Validate returns every problem found in the configuration.
func (c *Config) Validate() []error {
	var errs []error

	credentials := []struct {
		field string
		env   string
		value string
	}{
		{"twitter.consumer_key", EnvConsumerKey, c.Twitter.ConsumerKey},
		{"twitter.consumer_secret", EnvConsumerSecret, c.Twitter.ConsumerSecret},
		{"twitter.access_token", EnvAccessToken, c.Twitter.AccessToken},
		{"twitter.access_token_secret", EnvAccessTokenSecret, c.Twitter.AccessTokenSecret},
	}
	for _, cred := range credentials {
		switch {
		case cred.value == "":
			errs = append(errs, formatValidationError(cred.field, "is required (or set "+cred.env+")", ""))
		case len(cred.value) < minCredentialLength:
			errs = append(errs, formatValidationError(cred.field,
				fmt.Sprintf("is too short (minimum %d characters)", minCredentialLength), cred.value))
		}
	}

	if u, err := url.Parse(c.Twitter.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, formatValidationError("twitter.base_url", "must be an absolute http(s) URL", ""))
	}
	if c.Twitter.RequestTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("twitter.request_timeout_seconds must be >= 1"))
	}
	if c.Twitter.MinRequestIntervalMS < 0 {
		errs = append(errs, fmt.Errorf("twitter.min_request_interval_ms must be >= 0"))
	}

	if err := validatePath(c.Storage.CheckpointFile, "storage.checkpoint_file"); err != nil {
		errs = append(errs, err)
	}
	if err := validatePath(c.Storage.WhitelistFile, "storage.whitelist_file"); err != nil {
		errs = append(errs, err)
	}
	if c.Storage.CheckpointFile != "" && filepath.Clean(c.Storage.CheckpointFile) == filepath.Clean(c.Storage.WhitelistFile) {
		errs = append(errs, fmt.Errorf("storage.checkpoint_file and storage.whitelist_file must differ"))
	}

	if c.Purge.PageSize < 1 || c.Purge.PageSize > 200 {
		errs = append(errs, fmt.Errorf("purge.page_size must be between 1 and 200 (got %d)", c.Purge.PageSize))
	}
	if c.Purge.MaxCutoffPages < 1 {
		errs = append(errs, fmt.Errorf("purge.max_cutoff_pages must be >= 1"))
	}
	if c.Purge.DeleteAttempts < 1 {
		errs = append(errs, fmt.Errorf("purge.delete_attempts must be >= 1"))
	}
	if c.Purge.FetchAttempts < 1 {
		errs = append(errs, fmt.Errorf("purge.fetch_attempts must be >= 1"))
	}
	if c.Purge.Workers < 1 {
		errs = append(errs, fmt.Errorf("purge.workers must be >= 1"))
	}

	if c.Inactive.PeriodDays < 1 {
		errs = append(errs, fmt.Errorf("inactive.period_days must be >= 1"))
	}
	if err := validatePath(c.Inactive.ReportFile, "inactive.report_file"); err != nil {
		errs = append(errs, err)
	}
	if !oneOf(c.Inactive.Format, "json", "yaml") {
		errs = append(errs, fmt.Errorf("invalid inactive.format: %s (expected: json, yaml)", c.Inactive.Format))
	}

	if !oneOf(strings.ToLower(c.Logging.Level), "debug", "info", "warn", "error") {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	if !oneOf(strings.ToLower(c.Logging.Format), "json", "text") {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}
	if c.Logging.Output == "" {
		errs = append(errs, fmt.Errorf("logging.output is required"))
	}

	if !oneOf(c.Output.Color, "auto", "always", "never") {
		errs = append(errs, fmt.Errorf("invalid output.color: %s (expected: auto, always, never)", c.Output.Color))
	}

	return errs
}

// Check wraps every Validate error in ErrConfigInvalid.
func (c *Config) Check() error {
	errs := c.Validate()
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
