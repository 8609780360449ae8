// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server and worker processes.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	RabbitMQURL string
	LogLevel    string

	MigrationsDir   string
	ShutdownTimeout time.Duration

	Firebase FirebaseConfig
	Send     SendConfig
	Assist   AssistConfig
	Breaker  BreakerConfig

	SubscribeRateLimit  int
	SubscribeRateWindow time.Duration
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// FirebaseConfig lists credential sources in precedence order: explicit
// fields, then a credentials file, then application-default detection.
type FirebaseConfig struct {
	ProjectID       string
	ClientEmail     string
	PrivateKey      string
	CredentialsFile string
}

type SendConfig struct {
	BatchSize        int
	BatchConcurrency int
	Timeout          time.Duration
	BatchTimeout     time.Duration
	DedupeTokens     bool
}

type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

type AssistConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

const maxBatchSize = 500

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		MigrationsDir:   getEnv("MIGRATIONS_DIR", "migrations"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			ClientEmail:     getEnv("FIREBASE_CLIENT_EMAIL", ""),
			PrivateKey:      strings.ReplaceAll(getEnv("FIREBASE_PRIVATE_KEY", ""), `\n`, "\n"),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Send: SendConfig{
			BatchSize:        getEnvInt("SEND_BATCH_SIZE", maxBatchSize),
			BatchConcurrency: getEnvInt("SEND_BATCH_CONCURRENCY", 1),
			Timeout:          getEnvAsDuration("SEND_TIMEOUT", 10*time.Minute),
			BatchTimeout:     getEnvAsDuration("SEND_BATCH_TIMEOUT", 30*time.Second),
			DedupeTokens:     getEnvBool("SEND_DEDUPE_TOKENS", false),
		},
		Assist: AssistConfig{
			BaseURL: getEnv("ASSIST_API_URL", "https://generativelanguage.googleapis.com"),
			APIKey:  getEnv("ASSIST_API_KEY", ""),
			Model:   getEnv("ASSIST_MODEL", "gemini-2.0-flash"),
			Timeout: getEnvAsDuration("ASSIST_TIMEOUT", 30*time.Second),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvInt("GATEWAY_BREAKER_THRESHOLD", 5),
			Cooldown:         getEnvAsDuration("GATEWAY_BREAKER_COOLDOWN", 30*time.Second),
		},
		SubscribeRateLimit:  getEnvInt("SUBSCRIBE_RATE_LIMIT", 60),
		SubscribeRateWindow: getEnvAsDuration("SUBSCRIBE_RATE_WINDOW", time.Minute),
		TrustProxyHeaders:   getEnvBool("TRUST_PROXY_HEADERS", false),
	}

	if cfg.Send.BatchSize < 1 || cfg.Send.BatchSize > maxBatchSize {
		return nil, fmt.Errorf("SEND_BATCH_SIZE must be between 1 and %d, got %d", maxBatchSize, cfg.Send.BatchSize)
	}
	if cfg.Send.BatchConcurrency < 1 {
		cfg.Send.BatchConcurrency = 1
	}
	if cfg.Breaker.FailureThreshold < 1 {
		cfg.Breaker.FailureThreshold = 5
	}

	return cfg, nil
}

// RequireDatabase reports an error when no DSN was configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
		log.Printf("invalid integer for %s; using default %d", key, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
		log.Printf("invalid boolean for %s; using default %t", key, fallback)
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("invalid duration for %s; using default %s", key, fallback)
	}
	return fallback
}
