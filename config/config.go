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

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	S3       S3Config
	Cart     CartConfig
	Audit    AuditConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type LogConfig struct {
	Level  string
	Format string // json, console
}

// StorageConfig selects the key-value backend the cart is persisted to.
type StorageConfig struct {
	Driver string // memory, redis, sqlite, postgres, s3
}

type DatabaseConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional, for S3-compatible stores
	Prefix          string
}

type CartConfig struct {
	StorageKey     string
	PersistTimeout time.Duration
}

type AuditConfig struct {
	Schedule string // cron spec, empty disables the audit
	Resync   bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"

	DefaultCartStorageKey = "@GoMarketPlace:cartItems"
)

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", ""),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverSQLite)),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "admin"),
			Password:   getEnv("DB_PASSWORD", "1234"),
			DBName:     getEnv("DB_NAME", "gomarketplace"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "gomarketplace.db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "gomarketplace-cart"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
			Prefix:          getEnv("AWS_S3_PREFIX", "carts"),
		},
		Cart: CartConfig{
			StorageKey:     getEnv("CART_STORAGE_KEY", DefaultCartStorageKey),
			PersistTimeout: parseDuration(getEnv("CART_PERSIST_TIMEOUT", "5s"), 5*time.Second),
		},
		Audit: AuditConfig{
			Schedule: getEnv("CART_AUDIT_SCHEDULE", "@every 5m"),
			Resync:   parseBool(getEnv("CART_AUDIT_RESYNC", "false")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverRedis, DriverSQLite, DriverPostgres, DriverS3:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Cart.StorageKey) == "" {
		return fmt.Errorf("CART_STORAGE_KEY must not be empty")
	}
	if c.Storage.Driver == DriverS3 && c.S3.Bucket == "" {
		return fmt.Errorf("AWS_S3_BUCKET is required for the s3 storage driver")
	}
	return nil
}

// LogLevel falls back to debug in development and info elsewhere.
func (c *Config) LogLevel() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	if c.Server.Environment == "development" {
		return "debug"
	}
	return "info"
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, def time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, def)
		return def
	}
	return duration
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, def)
		return def
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
