package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv загружает переменные окружения из .env файла.
// Уже установленные переменные не перезаписываются.
func LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoadEnvOptional загружает переменные окружения из .env файла, если он существует.
// Если файл не существует - возвращает nil (без ошибки).
func LoadEnvOptional(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	return LoadEnv(path)
}
