package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Database configuration.
	DatabaseURL        string `mapstructure:"DATABASE_URL"`
	DBPoolMin          int    `mapstructure:"DB_POOL_MIN"`
	DBPoolMax          int    `mapstructure:"DB_POOL_MAX"`
	DBStatementTimeout int    `mapstructure:"DB_STATEMENT_TIMEOUT"` // milliseconds

	// Redis configuration.
	RedisAddr            string `mapstructure:"REDIS_ADDR"`
	RedisPassword        string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB         int    `mapstructure:"REDIS_CACHE_DB"`
	RedisReminderQueueDB int    `mapstructure:"REDIS_REMINDER_QUEUE_DB"`

	// Schedule compiler.
	HorizonDays int `mapstructure:"HORIZON_DAYS"`

	// Outbox dispatcher.
	OutboxPollMs      int `mapstructure:"OUTBOX_POLL_MS"`
	OutboxBatch       int `mapstructure:"OUTBOX_BATCH"`
	OutboxMaxAttempts int `mapstructure:"OUTBOX_MAX_ATTEMPTS"`
	OutboxLeaseMs     int `mapstructure:"OUTBOX_LEASE_MS"`
	HandlerTimeoutMs  int `mapstructure:"OUTBOX_HANDLER_TIMEOUT_MS"`

	// Booking coordinator.
	IdempotencyTTLSeconds int `mapstructure:"IDEMPOTENCY_TTL_SECONDS"`
	MaxBookingDurationMin int `mapstructure:"MAX_BOOKING_DURATION_MIN"`
	RequestTimeoutMs      int `mapstructure:"REQUEST_TIMEOUT_MS"`

	// Public surface.
	RateLimitPublicPerMin int    `mapstructure:"RATE_LIMIT_PUBLIC_PER_MIN"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`

	// Payment provider.
	StripeKey string `mapstructure:"STRIPE_KEY"`
}

var AppConfig Config

// LoadConfig reads config.yaml if present and environment variables otherwise,
// then fills AppConfig. Returns an error instead of exiting so main can map
// configuration failures to exit code 1.
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "postgres://localhost:5432/slotify")
	viper.SetDefault("DB_POOL_MIN", 2)
	viper.SetDefault("DB_POOL_MAX", 10)
	viper.SetDefault("DB_STATEMENT_TIMEOUT", 5000)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_REMINDER_QUEUE_DB", 1)
	viper.SetDefault("HORIZON_DAYS", 30)
	viper.SetDefault("OUTBOX_POLL_MS", 1000)
	viper.SetDefault("OUTBOX_BATCH", 50)
	viper.SetDefault("OUTBOX_MAX_ATTEMPTS", 5)
	viper.SetDefault("OUTBOX_LEASE_MS", 30000)
	viper.SetDefault("OUTBOX_HANDLER_TIMEOUT_MS", 10000)
	viper.SetDefault("IDEMPOTENCY_TTL_SECONDS", 86400)
	viper.SetDefault("MAX_BOOKING_DURATION_MIN", 480)
	viper.SetDefault("REQUEST_TIMEOUT_MS", 5000)
	viper.SetDefault("RATE_LIMIT_PUBLIC_PER_MIN", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return err
	}
	return nil
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
