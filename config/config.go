package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	RedisURL    string
	MongoDBURL  string
	MongoDBName string

	// Knowledge base
	KBCollection string

	// OpenAI
	OpenAIAPIKey string
	LLMModel     string

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GoogleCalendarID   string

	// Pipeline
	CallTimeout        time.Duration
	ClassifyMaxRetries int
	GenerateMaxRetries int
	RetryInitialDelay  time.Duration

	// Concurrency limits per collaborator
	ClassifyMaxInFlight int
	GenerateMaxInFlight int
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "email_processor"),

		// Knowledge base
		KBCollection: getEnv("KB_COLLECTION", "kb_articles"),

		// OpenAI
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		LLMModel:     getEnv("LLM_MODEL", "gpt-4o-mini"),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GoogleCalendarID:   getEnv("GOOGLE_CALENDAR_ID", "primary"),

		// Pipeline
		CallTimeout:        time.Duration(getEnvInt("PIPELINE_CALL_TIMEOUT_SEC", 30)) * time.Second,
		ClassifyMaxRetries: getEnvInt("CLASSIFY_MAX_RETRIES", 3),
		GenerateMaxRetries: getEnvInt("GENERATE_MAX_RETRIES", 3),
		RetryInitialDelay:  time.Duration(getEnvInt("RETRY_INITIAL_DELAY_MS", 200)) * time.Millisecond,

		// Concurrency limits
		ClassifyMaxInFlight: getEnvInt("CLASSIFY_MAX_IN_FLIGHT", 8),
		GenerateMaxInFlight: getEnvInt("GENERATE_MAX_IN_FLIGHT", 4),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
