package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DBSource  string
	RedisAddr string
	Port      string
	Env       string

	// Backfill tuning
	BackfillBatchSize   int
	BackfillParallelism int

	// Views older than this many minutes are flagged by the freshness audit.
	ViewStaleMinutes int
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		// Assemble from discrete vars when no DSN is given
		user := os.Getenv("DB_USER")
		if user == "" {
			return nil, fmt.Errorf("DB_SOURCE or DB_USER environment variable is required")
		}
		dbSource = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			user,
			os.Getenv("DB_PASSWORD"),
			envOr("DB_HOST", "localhost"),
			envOr("DB_PORT", "5432"),
			envOr("DB_NAME", "festivo"),
		)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		host := envOr("REDIS_HOST", "localhost")
		port := envOr("REDIS_PORT", "6379")
		redisAddr = host + ":" + port
	}

	return &Config{
		DBSource:            dbSource,
		RedisAddr:           redisAddr,
		Port:                envOr("PORT", "8080"),
		Env:                 envOr("ENVIRONMENT", "development"),
		BackfillBatchSize:   envInt("BACKFILL_BATCH_SIZE", 50),
		BackfillParallelism: envInt("BACKFILL_PARALLELISM", 8),
		ViewStaleMinutes:    envInt("VIEW_STALE_MINUTES", 60),
	}, nil
}

// StaleThreshold is ViewStaleMinutes as a duration.
func (c *Config) StaleThreshold() time.Duration {
	return time.Duration(c.ViewStaleMinutes) * time.Minute
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
