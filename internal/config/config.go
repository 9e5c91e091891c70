package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	// Telegram
	TelegramBotToken string
	WebhookBaseURL   string // Public base URL used when registering the webhook
	WebhookSecret    string // Optional path secret for the webhook route
	AutoSetWebhook   bool   // Register the webhook on startup when a base URL is set

	// Classifier (OpenAI-compatible chat completions)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Transcription (Groq Whisper preferred, OpenAI fallback)
	GroqAPIKey string

	// Item store backends
	DatabasePath  string // SQLite file path (default backend)
	MongoURI      string // When set, items are stored in MongoDB instead
	MongoDatabase string

	// Confirmation registry
	RedisURL   string        // When set, pending confirmations live in Redis
	PendingTTL time.Duration // How long an unanswered confirmation survives

	// Tag mapping overrides
	TagMapPath string // Optional YAML file overriding the built-in tag map
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "5000"),
		Environment: getEnv("ENVIRONMENT", "development"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookBaseURL:   getEnv("WEBHOOK_BASE_URL", ""),
		WebhookSecret:    getEnv("WEBHOOK_SECRET", ""),
		AutoSetWebhook:   getBoolEnv("AUTO_SET_WEBHOOK", true),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4.1-mini"),

		GroqAPIKey: getEnv("GROQ_API_KEY", ""),

		DatabasePath:  getEnv("DATABASE_PATH", "diane.db"),
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "diane"),

		RedisURL:   getEnv("REDIS_URL", ""),
		PendingTTL: getDurationEnv("PENDING_TTL", 24*time.Hour),

		TagMapPath: getEnv("TAG_MAP_PATH", ""),
	}
}

// WebhookPath returns the route the Telegram webhook is served on. A
// configured secret becomes a path segment so the URL is unguessable.
func (c *Config) WebhookPath() string {
	if c.WebhookSecret != "" {
		return "/api/telegram/" + c.WebhookSecret
	}
	return "/api/telegram"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
