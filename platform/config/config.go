// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int32
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RateLimitConfig provides settings for the authorization rate limiter.
type RateLimitConfig interface {
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// SchedulerConfig provides settings for the asynq client, worker and outbox dispatcher.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetOutboxPollInterval() time.Duration
	GetOutboxBatchSize() int
	GetOutboxRetention() time.Duration
}

// FollowUpConfig provides settings for best-effort post-authorization work.
type FollowUpConfig interface {
	GetFollowUpTimeout() time.Duration
	GetFollowUpDedupTTL() time.Duration
	GetOutboxMaxAttempts() int
}

// Config holds every setting loaded from the environment.
type Config struct {
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	DatabaseMaxConns  int32
	MigrationsEnabled bool

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RateLimitRPS   float64
	RateLimitBurst int

	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxRetention    time.Duration
	OutboxMaxAttempts  int

	FollowUpTimeout  time.Duration
	FollowUpDedupTTL time.Duration
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int32 { return c.DatabaseMaxConns }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RateLimitConfig implementation
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                  { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool            { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string            { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int             { return c.AsynqConcurrency }
func (c *Config) GetOutboxPollInterval() time.Duration { return c.OutboxPollInterval }
func (c *Config) GetOutboxBatchSize() int              { return c.OutboxBatchSize }
func (c *Config) GetOutboxRetention() time.Duration    { return c.OutboxRetention }

// FollowUpConfig implementation
func (c *Config) GetFollowUpTimeout() time.Duration  { return c.FollowUpTimeout }
func (c *Config) GetFollowUpDedupTTL() time.Duration { return c.FollowUpDedupTTL }
func (c *Config) GetOutboxMaxAttempts() int          { return c.OutboxMaxAttempts }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:   int32(mustInt(getEnv("DATABASE_MAX_CONNS", "25"), 25)),
		MigrationsEnabled:  strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitRPS:       mustFloat(getEnv("RATE_LIMIT_RPS", "5"), 5),
		RateLimitBurst:     mustInt(getEnv("RATE_LIMIT_BURST", "10"), 10),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "10"), 10),
		OutboxPollInterval: mustDuration(getEnv("OUTBOX_POLL_INTERVAL", "2s"), 2*time.Second),
		OutboxBatchSize:    mustInt(getEnv("OUTBOX_BATCH_SIZE", "50"), 50),
		OutboxRetention:    mustDuration(getEnv("OUTBOX_RETENTION", "336h"), 14*24*time.Hour),
		OutboxMaxAttempts:  mustInt(getEnv("OUTBOX_MAX_ATTEMPTS", "6"), 6),
		FollowUpTimeout:    mustDuration(getEnv("FOLLOWUP_TIMEOUT", "10s"), 10*time.Second),
		FollowUpDedupTTL:   mustDuration(getEnv("FOLLOWUP_DEDUP_TTL", "24h"), 24*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func mustInt(value string, fallback int) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || result <= 0 {
		return fallback
	}
	return result
}

func mustFloat(value string, fallback float64) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || result <= 0 {
		return fallback
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
