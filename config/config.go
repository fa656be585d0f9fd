package config

import (
	"os"
	"strconv"
	"time"
)

// Language validation policies for the assist endpoints.
const (
	PolicyStrict  = "strict"  // reject unknown or absent language selectors
	PolicyLenient = "lenient" // substitute the configured default language
)

// Config holds all configuration for the DSA assist service
type Config struct {
	// Server configuration
	Port           string
	AllowedOrigins string

	// Ollama configuration
	OllamaBaseURL    string
	OllamaModel      string
	InferenceTimeout time.Duration

	// Problem catalog configuration
	CatalogSource string // "file" or "mysql"
	ProblemsFile  string

	// Database configuration (mysql catalog only)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Response cache configuration
	CacheFile string

	// Language policy
	LanguagePolicy  string
	DefaultLanguage string

	// Rate limiting
	RateLimitPerMinute int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		// Server defaults
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		// Ollama defaults. Local model inference is slow, so the request
		// timeout is measured in minutes, not seconds.
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "llama3"),
		InferenceTimeout: getDurationEnv("INFERENCE_TIMEOUT", 5*time.Minute),

		// Catalog defaults
		CatalogSource: getEnv("CATALOG_SOURCE", "file"),
		ProblemsFile:  getEnv("PROBLEMS_FILE", "data/problems.json"),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "dsa_practice"),

		// Cache defaults
		CacheFile: getEnv("CACHE_FILE", "data/last_response.json"),

		// Language defaults
		LanguagePolicy:  getEnv("LANGUAGE_POLICY", PolicyLenient),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "python"),

		// Rate limiting defaults
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 30),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
