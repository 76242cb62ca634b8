package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL string
	DataDir    string
	Storage    string
	Language   string
}

func Load() (*Config, error) {
	// a missing .env is fine, the environment still applies
	_ = godotenv.Load()

	storage := getEnv("MOJIKA_STORAGE", "jsonfile")
	if storage != "jsonfile" && storage != "sqlite" {
		return nil, fmt.Errorf("invalid MOJIKA_STORAGE %q: must be jsonfile or sqlite", storage)
	}

	dataDir := os.Getenv("MOJIKA_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".mojika")
	}

	return &Config{
		APIBaseURL: getEnv("MOJIKA_API_URL", "http://localhost:8567/api"),
		DataDir:    dataDir,
		Storage:    storage,
		Language:   getEnv("MOJIKA_LANGUAGE", "ja"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
