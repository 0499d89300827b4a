// config_test.go - Tests for environment loading and validation

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("DB_DRIVER", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultJWTSecret, cfg.JWTSecret)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("CREATE_ADMIN", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.True(t, cfg.CreateAdmin)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("BCRYPT_COST", "ten")
	t.Setenv("JWT_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
}

func TestPostgresDSNSubstitutesPassword(t *testing.T) {
	cfg := &Config{
		DatabaseURL:      "postgres://app:<db_password>@db:5432/users?sslmode=disable",
		DatabasePassword: "s3cret",
	}

	assert.Equal(t, "postgres://app:s3cret@db:5432/users?sslmode=disable", cfg.PostgresDSN())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:              EnvDevelopment,
			JWTSecret:        DefaultJWTSecret,
			TokenTTL:         time.Hour,
			RefreshTTL:       time.Hour,
			BcryptCost:       10,
			HashConcurrency:  1,
			DBDriver:         "sqlite",
			DBPath:           "data.db",
			EventsBackend:    "log",
			LoginMaxAttempts: 5,
			LoginCooldown:    time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"default secret in production", func(c *Config) { c.Env = EnvProduction }, true},
		{"strong secret in production", func(c *Config) {
			c.Env = EnvProduction
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
			c.SMTPHost = "smtp.example.com"
		}, false},
		{"production without smtp", func(c *Config) {
			c.Env = EnvProduction
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, true},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }, true},
		{"cost too low", func(c *Config) { c.BcryptCost = 2 }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, true},
		{"postgres without url", func(c *Config) { c.DBDriver = "postgres" }, true},
		{"unknown events backend", func(c *Config) { c.EventsBackend = "smoke" }, true},
		{"admin without password", func(c *Config) { c.CreateAdmin = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
