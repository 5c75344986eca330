package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the OpenAI bridge.
type Config struct {
	APIKey         string // expected client secret, compared as "Bearer <APIKey>"
	Port           string // HTTP listen port (e.g. "8000")
	OllamaURL      string // Ollama base URL (e.g. "http://localhost:11434")
	TimeoutMs      int    // blocking backend call timeout in milliseconds
	GRPCHealthPort string // gRPC health listen port; empty disables it
	LogLevel       string
	MetricsEnabled bool
}

// Load loads configuration from environment variables with fallback defaults.
// A .env file in the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load(".env")

	return &Config{
		APIKey:         getEnv("OPENAI_API_KEY", ""),
		Port:           getEnv("PORT", "8000"),
		OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
		TimeoutMs:      getEnvInt("OLLAMA_TIMEOUT_MS", 120000),
		GRPCHealthPort: getEnv("GRPC_HEALTH_PORT", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

// getEnv reads an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}
