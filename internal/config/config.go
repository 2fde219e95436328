package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config carries every runtime setting for the pipeline and the API
// service. It is built once at process start and passed explicitly to each
// component; nothing reads the environment after Load returns.
type Config struct {
	Transit    TransitConfig
	Extract    ExtractConfig
	StagingDir string `validate:"required"`
	Retry      RetryConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	API        APIConfig
}

// TransitConfig configures the upstream Winnipeg Transit API client.
type TransitConfig struct {
	BaseURL      string        `validate:"required,url"`
	APIKey       string        `validate:"required"`
	RateLimitRPM int           `validate:"gt=0"`
	Timeout      time.Duration `validate:"gt=0"`
}

// ExtractConfig tunes the fan-out extractors.
type ExtractConfig struct {
	FanoutConcurrency int           `validate:"gt=0"`
	FailureThreshold  float64       `validate:"gte=0,lte=1"`
	ScheduleWindow    time.Duration `validate:"gt=0"`
}

// RetryConfig is the task graph's per-node retry policy.
type RetryConfig struct {
	Count   int           `validate:"gte=0"`
	Backoff time.Duration `validate:"gte=0"`
}

// DatabaseConfig holds warehouse connection settings.
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"gt=0"`
	Name     string `validate:"required"`
	User     string `validate:"required"`
	Password string
	SSLMode  string
	MinConns int32
	MaxConns int32 `validate:"gt=0"`
}

// RedisConfig holds run ledger connection settings. TLS is required by
// hosted providers such as Upstash.
type RedisConfig struct {
	Host       string `validate:"required"`
	Port       int    `validate:"gt=0"`
	Password   string
	DB         int
	TLSEnabled bool
	StateTTL   time.Duration `validate:"gt=0"`
}

// APIConfig holds HTTP service settings. An empty AuthKey leaves the
// mutating endpoints unguarded.
type APIConfig struct {
	Port    string `validate:"required"`
	AuthKey string
}

// Load builds the configuration from the environment, optionally seeding it
// from a dotenv file first. Variables already set in the environment are
// never overridden by the file. A missing file is an error only when its
// path was given explicitly.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	rpm, err := getEnvInt("TRANSIT_RATE_LIMIT_RPM", 100)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvDuration("TRANSIT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	concurrency, err := getEnvInt("FANOUT_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	threshold, err := getEnvFloat("FANOUT_FAILURE_THRESHOLD", 0.2)
	if err != nil {
		return nil, err
	}
	window, err := getEnvDuration("SCHEDULE_WINDOW", time.Hour)
	if err != nil {
		return nil, err
	}
	retryCount, err := getEnvInt("RETRY_COUNT", 1)
	if err != nil {
		return nil, err
	}
	retryBackoff, err := getEnvDuration("RETRY_BACKOFF", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	redisPort, err := getEnvInt("REDIS_PORT", 6379)
	if err != nil {
		return nil, err
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	redisTLS, err := getEnvBool("REDIS_TLS_ENABLED", false)
	if err != nil {
		return nil, err
	}
	stateTTL, err := getEnvDuration("RUN_STATE_TTL", 168*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Transit: TransitConfig{
			BaseURL:      getEnv("TRANSIT_API_BASE_URL", "https://api.winnipegtransit.com/v3"),
			APIKey:       getEnv("TRANSIT_API_KEY", ""),
			RateLimitRPM: rpm,
			Timeout:      timeout,
		},
		Extract: ExtractConfig{
			FanoutConcurrency: concurrency,
			FailureThreshold:  threshold,
			ScheduleWindow:    window,
		},
		StagingDir: getEnv("STAGING_DIR", "./staging"),
		Retry: RetryConfig{
			Count:   retryCount,
			Backoff: retryBackoff,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			Name:     getEnv("DB_NAME", "winnipeg_transit"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MinConns: int32(minConns),
			MaxConns: int32(maxConns),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       redisPort,
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         redisDB,
			TLSEnabled: redisTLS,
			StateTTL:   stateTTL,
		},
		API: APIConfig{
			Port:    getEnv("API_PORT", "8080"),
			AuthKey: getEnv("API_AUTH_KEY", ""),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false, got %q", key, value)
	}
	return b, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, value)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 5m, got %q", key, value)
	}
	return d, nil
}
