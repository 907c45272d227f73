package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// GIVEN: None of the keys set
	for _, k := range []string{"PORT", "STORE_DRIVER", "SQLITE_PATH", "DATABASE_URL", "JWT_SECRET",
		"TOKEN_TTL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LOG_LEVEL", "LOG_FORMAT",
		"CORS_ALLOWED_ORIGINS", "MAX_SERIES_LENGTH", "TIMEZONE", "ENABLE_SEED"} {
		t.Setenv(k, "")
	}

	// WHEN: Loading
	cfg, err := Load()

	// THEN: Fallbacks apply
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 500, cfg.MaxSeriesLength)
	assert.Equal(t, "UTC", cfg.Server.Location.String())
	assert.NotEmpty(t, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Server.EnableSeed)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/ops")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("MAX_SERIES_LENGTH", "50")
	t.Setenv("TIMEZONE", "America/Guayaquil")
	t.Setenv("ENABLE_SEED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 50, cfg.MaxSeriesLength)
	assert.Equal(t, "America/Guayaquil", cfg.Server.Location.String())
	assert.True(t, cfg.Server.EnableSeed)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("TOKEN_TTL", "forever")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	t.Setenv("ENABLE_SEED", "maybe")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "TOKEN_TTL")
	assert.Contains(t, err.Error(), "TIMEZONE")
	assert.Contains(t, err.Error(), "ENABLE_SEED")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:           StoreConfig{Driver: DriverSQLite},
			Auth:            AuthConfig{JWTSecret: "x", TokenTTL: time.Hour},
			MaxSeriesLength: 10,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"postgres without url", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"zero series length", func(c *Config) { c.MaxSeriesLength = 0 }},
	}
	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
