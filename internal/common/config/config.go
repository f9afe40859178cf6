package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	RateLimit     RateLimitConfig    `mapstructure:"rate_limit"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig holds admission control settings. The per-client sliding
// window is the primary gate; the global token bucket protects the process
// as a whole.
type RateLimitConfig struct {
	Limit         int    `mapstructure:"limit"`          // admitted requests per window per client
	WindowSeconds int    `mapstructure:"window_seconds"` // trailing window size
	MaxIdentities int    `mapstructure:"max_identities"` // LRU cap on tracked client identities
	Store         string `mapstructure:"store"`          // "memory" (default) or "redis"
	GlobalRPS     int    `mapstructure:"global_rps"`
	GlobalBurst   int    `mapstructure:"global_burst"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// NotificationConfig holds settings for the notification dispatcher.
type NotificationConfig struct {
	MaxRetries    int    `mapstructure:"max_retries"`      // retries after the first attempt
	BaseDelayMS   int    `mapstructure:"base_delay_ms"`    // first backoff delay
	MaxDelayMS    int    `mapstructure:"max_delay_ms"`     // backoff ceiling
	FromEmail     string `mapstructure:"from_email"`
	AWSRegion     string `mapstructure:"aws_region"`
	AlertsTopic   string `mapstructure:"alerts_topic_arn"` // SNS topic for exhausted deliveries, optional
	SweepSchedule string `mapstructure:"sweep_schedule"`   // cron spec for the failure sweep
}

func (n NotificationConfig) BaseDelay() time.Duration {
	return time.Duration(n.BaseDelayMS) * time.Millisecond
}

func (n NotificationConfig) MaxDelay() time.Duration {
	return time.Duration(n.MaxDelayMS) * time.Millisecond
}

// StorageConfig holds settings for the resume document store.
type StorageConfig struct {
	S3 struct {
		Bucket string `mapstructure:"bucket"`
		Region string `mapstructure:"region"`
	} `mapstructure:"s3"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
