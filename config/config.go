// config.go - Handles configuration for the project
//
// Configuration is read once at startup (environment, optionally seeded from a
// .env file) and then passed by pointer into every component that needs it.
// Nothing reads the environment after Load returns.

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	// DefaultJWTSecret is only acceptable outside production.
	DefaultJWTSecret = "supersecret"

	// passwordPlaceholder is replaced inside DATABASE_URL by DATABASE_PASSWORD.
	passwordPlaceholder = "<db_password>"
)

type Config struct { // Config struct holds all configuration values
	Port string // HTTP listen port
	Env  string // development | production | test

	// Session tokens
	JWTSecret  string        // HMAC secret for session tokens
	JWTIssuer  string        // iss claim
	TokenTTL   time.Duration // Session token lifetime (1h)
	RefreshTTL time.Duration // Refresh token lifetime

	// Password hashing
	BcryptCost      int // bcrypt work factor
	HashConcurrency int // Max concurrent hash operations

	// Database
	DBDriver         string // sqlite | postgres
	DBPath           string // Path to the SQLite database file
	DatabaseURL      string // Postgres URL, may contain <db_password>
	DatabasePassword string // Substituted into DatabaseURL

	// Default admin seeding
	CreateAdmin   bool
	AdminEmail    string
	AdminPassword string

	// Login rate limiting (disabled when RedisAddr is empty)
	RedisAddr        string
	RedisPassword    string
	LoginMaxAttempts int
	LoginCooldown    time.Duration

	// Account events
	EventsBackend    string // none | log | mqtt | kafka
	EventTopicPrefix string
	MQTTBroker       string // Address of the MQTT broker
	MQTTClientID     string
	KafkaBrokers     []string

	// Outgoing mail (log fallback when SMTPHost is empty, development only)
	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	SMTPFrom  string
	PublicURL string // Base URL used in emailed links
}

func Load() *Config { // Load reads config from environment variables or uses defaults
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: could not read .env: %v", err)
	}

	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),

		JWTSecret:  getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTIssuer:  getEnv("JWT_ISSUER", "go-user-backend"),
		TokenTTL:   getEnvDuration("JWT_TTL", time.Hour),
		RefreshTTL: getEnvDuration("REFRESH_TTL", 7*24*time.Hour),

		BcryptCost:      getEnvInt("BCRYPT_COST", 10),
		HashConcurrency: getEnvInt("HASH_CONCURRENCY", 8),

		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:           getEnv("DB_PATH", "data.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DatabasePassword: getEnv("DATABASE_PASSWORD", ""),

		CreateAdmin:   getEnvBool("CREATE_ADMIN", false),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginCooldown:    getEnvDuration("LOGIN_COOLDOWN", 15*time.Minute),

		EventsBackend:    strings.ToLower(getEnv("EVENTS_BACKEND", "log")),
		EventTopicPrefix: getEnv("EVENT_TOPIC_PREFIX", "accounts"),
		MQTTBroker:       getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:     getEnv("MQTT_CLIENT_ID", "go-user-backend"),
		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),

		SMTPHost:  getEnv("SMTP_HOST", ""),
		SMTPPort:  getEnv("SMTP_PORT", "587"),
		SMTPUser:  getEnv("SMTP_USER", ""),
		SMTPPass:  getEnv("SMTP_PASS", ""),
		SMTPFrom:  getEnv("SMTP_FROM", ""),
		PublicURL: strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
	}
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.Env == EnvProduction && (c.JWTSecret == DefaultJWTSecret || len(c.JWTSecret) < 32) {
		return errors.New("JWT_SECRET must be set to at least 32 characters in production")
	}
	if c.Env == EnvProduction && c.SMTPHost == "" {
		return errors.New("SMTP_HOST is required in production")
	}
	if c.TokenTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.HashConcurrency < 1 {
		return errors.New("HASH_CONCURRENCY must be at least 1")
	}
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.EventsBackend {
	case "none", "log", "mqtt", "kafka":
	default:
		return fmt.Errorf("unsupported EVENTS_BACKEND %q", c.EventsBackend)
	}
	if c.CreateAdmin && c.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD is required when CREATE_ADMIN is set")
	}
	if c.LoginMaxAttempts < 1 || c.LoginCooldown <= 0 {
		return errors.New("login rate limit settings must be positive")
	}
	return nil
}

// IsDevelopment reports whether internal error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// PostgresDSN returns DatabaseURL with the password placeholder substituted.
func (c *Config) PostgresDSN() string {
	return strings.ReplaceAll(c.DatabaseURL, passwordPlaceholder, c.DatabasePassword)
}

func getEnv(key, fallback string) string { // Helper to get env var or fallback
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("config: %s=%q is not a boolean, using %t", key, value, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("config: %s=%q is not a duration, using %s", key, value, fallback)
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
