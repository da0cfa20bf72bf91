package config

import (
	"strings"
)

// maskSecret маскирует секрет, оставляя только первые 4 и последние 4 символа
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	if len(secret) < 8 {
		return "***"
	}

	prefix := secret[:4]
	suffix := secret[len(secret)-4:]
	masked := strings.Repeat("*", len(secret)-8)

	return prefix + masked + suffix
}

// Redacted возвращает копию конфигурации с маскированными секретами
func (c *Config) Redacted() Config {
	out := *c
	out.Twitter.ConsumerKey = maskSecret(c.Twitter.ConsumerKey)
	out.Twitter.ConsumerSecret = maskSecret(c.Twitter.ConsumerSecret)
	out.Twitter.AccessToken = maskSecret(c.Twitter.AccessToken)
	out.Twitter.AccessTokenSecret = maskSecret(c.Twitter.AccessTokenSecret)
	return out
}

// formatValidationError форматирует ошибку валидации с маскированным секретом
func formatValidationError(field, message string, secret string) error {
	errorMsg := field + ": " + message
	if masked := maskSecret(secret); masked != "" {
		errorMsg += " (value: " + masked + ")"
	}

	return &ValidationError{Field: field, Message: errorMsg}
}

// ValidationError представляет ошибку валидации с дополнительной информацией
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
