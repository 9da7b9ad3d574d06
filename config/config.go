// Package config loads runtime configuration from the environment, the
// way the teacher's cmd/server/config does, extended with the engine
// tunables SPEC_FULL.md's ambient stack calls for.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the full set of environment-driven runtime settings.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Engine     EngineConfig
	Checkpoint CheckpointConfig
	Log        LogConfig
}

// ServerConfig holds the HTTP front door's listen settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds Postgres connection settings for the checkpointer driver.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds connection settings for the Redis checkpointer driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig holds connection settings for the event bus transport.
type NATSConfig struct {
	URL string
}

// LogConfig controls the ambient structured logger.
type LogConfig struct {
	Level string
}

// EngineConfig holds the scheduler/resilience tunables the spec leaves
// to the caller: max concurrency, deadlock watchdog timeout, and the
// default retry policy applied when a node doesn't override one.
type EngineConfig struct {
	MaxConcurrency      int
	DeadlockTimeout      time.Duration
	DefaultMaxAttempts  int
	DefaultInitialDelay time.Duration
	DefaultMaxDelay     time.Duration
	DefaultMultiplier   float64
	DefaultJitter       float64
	StreamBufferSize    int
	MaxRecursionDepth   int
}

// CheckpointConfig selects and tunes the checkpointer driver.
type CheckpointConfig struct {
	Driver             string // "memory" | "postgres" | "redis"
	HistoryLimit       int
	ResilientRetries   int
	BreakerThreshold   int
	BreakerTimeout     time.Duration
}

// Load reads Config from the process environment, applying the same
// defaults-with-override style as the teacher.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8080),
			Host: getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "appuser"),
			Password: getEnv("DB_PASSWORD", "apppass"),
			Database: getEnv("DB_NAME", "graphrt"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Engine: EngineConfig{
			MaxConcurrency:      getEnvInt("ENGINE_MAX_CONCURRENCY", 16),
			DeadlockTimeout:     getEnvDuration("ENGINE_DEADLOCK_TIMEOUT", 30*time.Second),
			DefaultMaxAttempts:  getEnvInt("ENGINE_RETRY_MAX_ATTEMPTS", 3),
			DefaultInitialDelay: getEnvDuration("ENGINE_RETRY_INITIAL_DELAY", 100*time.Millisecond),
			DefaultMaxDelay:     getEnvDuration("ENGINE_RETRY_MAX_DELAY", 10*time.Second),
			DefaultMultiplier:   getEnvFloat("ENGINE_RETRY_MULTIPLIER", 2.0),
			DefaultJitter:       getEnvFloat("ENGINE_RETRY_JITTER", 0.2),
			StreamBufferSize:    getEnvInt("ENGINE_STREAM_BUFFER", 32),
			MaxRecursionDepth:   getEnvInt("ENGINE_MAX_RECURSION_DEPTH", 10),
		},
		Checkpoint: CheckpointConfig{
			Driver:           getEnv("CHECKPOINT_DRIVER", "memory"),
			HistoryLimit:     getEnvInt("CHECKPOINT_HISTORY_LIMIT", 100),
			ResilientRetries: getEnvInt("CHECKPOINT_RETRY_MAX_ATTEMPTS", 3),
			BreakerThreshold: getEnvInt("CHECKPOINT_BREAKER_THRESHOLD", 5),
			BreakerTimeout:   getEnvDuration("CHECKPOINT_BREAKER_TIMEOUT", 30*time.Second),
		},
	}

	return cfg, nil
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
