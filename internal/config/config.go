// Package config provides configuration management for the ID scanner application.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Lookup      LookupConfig
	Entitlement EntitlementConfig
	Storage     StorageConfig
	Payment     PaymentConfig
	RateLimit   RateLimitConfig
	Logging     LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// URL returns the connection string for the pgx pool and golang-migrate
func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// ClickHouseConfig holds ClickHouse configuration. An empty host disables scan analytics.
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	StatisticsTTL time.Duration
}

// LookupConfig bounds the record store call made per scan
type LookupConfig struct {
	Timeout time.Duration
}

// EntitlementConfig holds plan bookkeeping settings
type EntitlementConfig struct {
	ExpiringSoonDays int
	// ProfileBackend selects the profile store: "postgres" or "redis"
	ProfileBackend string
}

// StorageConfig holds photo storage configuration. An empty bucket disables photo URLs.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignTTL      time.Duration
}

// PaymentConfig holds payment gateway configuration
type PaymentConfig struct {
	PayMongoSecretKey string
	PayMongoBaseURL   string
	ReturnURL         string
	Timeout           time.Duration
}

// RateLimitConfig holds per-user request limits in requests per second
type RateLimitConfig struct {
	FreeRPS int
	ProRPS  int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; variables may be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "id_scanner"),
				User:           getEnv("POSTGRES_USER", "scanner"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 25),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", ""),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "id_scanner"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Cache: CacheConfig{
			StatisticsTTL: getEnvAsDuration("CACHE_STATISTICS_TTL", 60*time.Second),
		},
		Lookup: LookupConfig{
			Timeout: getEnvAsDuration("LOOKUP_TIMEOUT", 5*time.Second),
		},
		Entitlement: EntitlementConfig{
			ExpiringSoonDays: getEnvAsInt("ENTITLEMENT_EXPIRING_SOON_DAYS", 7),
			ProfileBackend:   getEnv("PROFILE_BACKEND", "postgres"),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("PHOTO_BUCKET", ""),
			Region:          getEnv("PHOTO_REGION", "ap-southeast-1"),
			Endpoint:        getEnv("PHOTO_ENDPOINT", ""),
			AccessKeyID:     getEnv("PHOTO_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("PHOTO_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvAsBool("PHOTO_USE_PATH_STYLE", false),
			PresignTTL:      getEnvAsDuration("PHOTO_PRESIGN_TTL", 15*time.Minute),
		},
		Payment: PaymentConfig{
			PayMongoSecretKey: getEnv("PAYMONGO_SECRET_KEY", ""),
			PayMongoBaseURL:   getEnv("PAYMONGO_BASE_URL", "https://api.paymongo.com/v1"),
			ReturnURL:         getEnv("PAYMENT_RETURN_URL", "idscanner://payment/return"),
			Timeout:           getEnvAsDuration("PAYMENT_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			FreeRPS: getEnvAsInt("RATE_LIMIT_FREE_RPS", 5),
			ProRPS:  getEnvAsInt("RATE_LIMIT_PRO_RPS", 50),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
