package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPath        string
	RedisHost     string
	RedisPort     string
	RedisURL      string
	SessionSecret string
	GinMode       string
	Addr          string
	LogLevel      string
	OpenAIAPIKey  string

	// Actor role snapshots are cached in Redis for this long. Zero disables the cache.
	ActorCacheTTL time.Duration

	// Object storage for attachments. Storage is disabled when StorageEndpoint is empty.
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
	StorageUseSSL    bool
	StorageURLExpiry time.Duration

	WorkerInterval time.Duration
	WebhookTimeout time.Duration
	WebhookBatch   int
	RecurringBatch int
}

// Load reads the configuration from the environment. A dotenv file named by
// ENV_FILE (default ".env") is applied first when present; variables already
// set in the environment take precedence.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg("failed to load env file")
		}
	}

	return &Config{
		DBDriver:      getEnv("DB_DRIVER", "mysql"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "workspaceuser"),
		DBPassword:    getEnv("DB_PASSWORD", "workspacepassword"),
		DBName:        getEnv("DB_NAME", "workspace"),
		DBPath:        getEnv("DB_PATH", "workspace.db"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisURL:      getEnv("REDIS_URL", ""),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		Addr:          getEnv("API_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),

		ActorCacheTTL: getEnvDuration("ACTOR_CACHE_TTL", 5*time.Minute),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", ""),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		StorageBucket:    getEnv("STORAGE_BUCKET", "attachments"),
		StorageRegion:    getEnv("STORAGE_REGION", "us-east-1"),
		StorageUseSSL:    getEnvBool("STORAGE_USE_SSL", false),
		StorageURLExpiry: getEnvDuration("STORAGE_URL_EXPIRY", 15*time.Minute),

		WorkerInterval: getEnvDuration("WORKER_INTERVAL", time.Minute),
		WebhookTimeout: getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookBatch:   getEnvInt("WEBHOOK_BATCH", 50),
		RecurringBatch: getEnvInt("RECURRING_BATCH", 100),
	}
}

// RedisAddr returns host:port for clients that do not accept a URL.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// RedisConnURL returns REDIS_URL, or one built from host and port.
func (c *Config) RedisConnURL() string {
	if c.RedisURL != "" {
		return c.RedisURL
	}
	return "redis://" + c.RedisAddr() + "/0"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvDuration accepts Go duration strings ("90s", "5m").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
