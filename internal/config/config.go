package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ListenAddr             string
	GoogleAPIKey           string
	SentryDSN              string
	RedisAddr              string // empty disables the Redis broker
	RedisDB                int
	Model                  string
	DBPath                 string
	Concurrency            int
	QueueSize              int
	APIKeys                []string // empty disables authentication
	CORSOrigins            []string
	RateLimitRPS           int
	RateLimitBurst         int // 0 means burst == RateLimitRPS
	MaxInputBytes          int
	JobTTLHours            int
	CleanupIntervalMinutes int
}

func Load() (*Config, error) {
	cfg := &Config{
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		SentryDSN:    os.Getenv("SENTRY_DSN"),
		Model:        getEnv("DOCGATE_MODEL", "gemini-pro"),
		DBPath:       getEnv("DOCGATE_DB_PATH", "docgate.db"),
	}

	if cfg.GoogleAPIKey == "" {
		return nil, errors.New("GOOGLE_API_KEY must not be empty")
	}

	port, err := getEnvInt("PORT", 8501)
	if err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}
	cfg.ListenAddr = ":" + strconv.Itoa(port)

	// REDIS_HOST selects the Redis broker; unset means the in-process queue.
	if host := os.Getenv("REDIS_HOST"); host != "" {
		redisPort, err := getEnvInt("REDIS_PORT", 6379)
		if err != nil {
			return nil, fmt.Errorf("REDIS_PORT: %w", err)
		}
		cfg.RedisAddr = fmt.Sprintf("%s:%d", host, redisPort)
		cfg.RedisDB, err = getEnvInt("REDIS_DB", 0)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
	}

	for _, k := range strings.Split(os.Getenv("DOCGATE_API_KEYS"), ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			cfg.APIKeys = append(cfg.APIKeys, k)
		}
	}

	for _, o := range strings.Split(os.Getenv("DOCGATE_CORS_ORIGINS"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	cfg.Concurrency, err = getEnvInt("DOCGATE_CONCURRENCY", 1)
	if err != nil {
		return nil, fmt.Errorf("DOCGATE_CONCURRENCY: %w", err)
	}
	if cfg.Concurrency < 1 {
		return nil, errors.New("DOCGATE_CONCURRENCY must be > 0")
	}

	cfg.QueueSize, err = getEnvInt("DOCGATE_QUEUE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("DOCGATE_QUEUE_SIZE: %w", err)
	}

	cfg.RateLimitRPS, err = getEnvInt("DOCGATE_RATE_LIMIT_RPS", 0)
	if err != nil {
		return nil, fmt.Errorf("DOCGATE_RATE_LIMIT_RPS: %w", err)
	}

	cfg.RateLimitBurst, err = getEnvInt("DOCGATE_RATE_LIMIT_BURST", 0)
	if err != nil {
		return nil, fmt.Errorf("DOCGATE_RATE_LIMIT_BURST: %w", err)
	}

	cfg.MaxInputBytes, err = getEnvInt("DOCGATE_MAX_INPUT_BYTES", 262144)
	if err != nil {
		return nil, fmt.Errorf("DOCGATE_MAX_INPUT_BYTES: %w", err)
	}
	if cfg.MaxInputBytes < 1 {
		return nil, errors.New("DOCGATE_MAX_INPUT_BYTES must be > 0")
	}

	cfg.JobTTLHours, err = getEnvInt("DOCGATE_JOB_TTL_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("DOCGATE_JOB_TTL_HOURS: %w", err)
	}

	cfg.CleanupIntervalMinutes, err = getEnvInt("DOCGATE_CLEANUP_INTERVAL_MINUTES", 60)
	if err != nil {
		return nil, fmt.Errorf("DOCGATE_CLEANUP_INTERVAL_MINUTES: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}
