package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string
	SiteURL     string
	PublicURL   string

	JWTSecret  string
	JWTExpiry  time.Duration
	CronSecret string

	// Classification sweep
	ClassifyRequireSecret bool
	ClassifyBatchSize     int
	ClassifyConcurrency   int
	ClassifyInterval      time.Duration
	ClassifyTimeout       time.Duration
	NotifyMinScore        int

	// LLM providers
	AIProvider       string
	OpenAIAPIKey     string
	OpenAIModel      string
	DeepseekAPIKey   string
	DeepseekModel    string
	PerplexityAPIKey string
	PerplexityModel  string

	// Mailgun
	MailgunAPIKey            string
	MailgunDomain            string
	MailgunWebhookSigningKey string
	MailgunEU                bool
	MailgunFromName          string

	// Twitter API v2
	TwitterClientID     string
	TwitterClientSecret string
	TwitterBearerToken  string
	TwitterAPIBaseURL   string
	TwitterRPS          float64

	RedisAddr     string
	RedisPassword string

	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string
	GeminiAPIKey   string

	GoogleProjectID     string
	GooglePubSubTopic   string
	GoogleCredentials   string
	FirebaseCredentials string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		SiteURL:     getEnv("SITE_URL", "http://localhost:3000"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:8080"),

		JWTSecret:  getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiry:  getDuration("JWT_EXPIRY", 24*time.Hour),
		CronSecret: getEnv("CRON_SECRET", ""),

		ClassifyRequireSecret: getBool("CLASSIFY_REQUIRE_SECRET", false),
		ClassifyBatchSize:     getInt("CLASSIFY_BATCH_SIZE", 10),
		ClassifyConcurrency:   getInt("CLASSIFY_CONCURRENCY", 4),
		ClassifyInterval:      getDuration("CLASSIFY_INTERVAL", 0),
		ClassifyTimeout:       getDuration("CLASSIFY_TIMEOUT", 5*time.Minute),
		NotifyMinScore:        getInt("NOTIFY_MIN_SCORE", 4),

		AIProvider:       getEnv("AI_PROVIDER", "auto"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		DeepseekAPIKey:   getEnv("DEEPSEEK_API_KEY", ""),
		DeepseekModel:    getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		PerplexityAPIKey: getEnv("PERPLEXITY_API_KEY", ""),
		PerplexityModel:  getEnv("PERPLEXITY_MODEL", "sonar"),

		MailgunAPIKey:            getEnv("MAILGUN_API_KEY", ""),
		MailgunDomain:            getEnv("MAILGUN_DOMAIN", ""),
		MailgunWebhookSigningKey: getEnv("MAILGUN_WEBHOOK_SIGNING_KEY", ""),
		MailgunEU:                getBool("MAILGUN_EU", false),
		MailgunFromName:          getEnv("MAILGUN_FROM_NAME", "HyperAgent"),

		TwitterClientID:     getEnv("TWITTER_CLIENT_ID", ""),
		TwitterClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
		TwitterBearerToken:  getEnv("TWITTER_BEARER_TOKEN", ""),
		TwitterAPIBaseURL:   getEnv("TWITTER_API_BASE_URL", "https://api.twitter.com"),
		TwitterRPS:          getFloat("TWITTER_RPS", 1),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),

		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", "opportunity-events"),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
