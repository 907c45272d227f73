/*
config.go - Runtime configuration

PURPOSE:
  Collects every tunable of the server in one struct. Values come from the
  environment, optionally pre-populated from a .env file; command-line
  flags in cmd/server override a few of them.

KEYS:
  PORT                  HTTP port                      (8080)
  STORE_DRIVER          memory | sqlite | postgres     (sqlite)
  SQLITE_PATH           SQLite database file           (operations.db)
  DATABASE_URL          PostgreSQL URL                 ("")
  JWT_SECRET            HS256 signing secret           (required)
  TOKEN_TTL             Token lifetime                 (24h)
  REDIS_ADDR            Revocation list; empty = memory ("")
  REDIS_PASSWORD, REDIS_DB
  LOG_LEVEL             debug | info | warn | error    (info)
  LOG_FORMAT            console | json                 (console)
  CORS_ALLOWED_ORIGINS  comma separated                (localhost dev ports)
  MAX_SERIES_LENGTH     jobs per recurring request     (500)
  TIMEZONE              IANA name for day boundaries   (UTC)
  ENABLE_SEED           mount POST /api/seed           (false)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type ServerConfig struct {
	Port        int
	CORSOrigins []string
	Location    *time.Location
	EnableSeed  bool
}

type StoreConfig struct {
	Driver      Driver
	SQLitePath  string
	DatabaseURL string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

type Config struct {
	Server          ServerConfig
	Store           StoreConfig
	Auth            AuthConfig
	Redis           RedisConfig
	Log             LogConfig
	MaxSeriesLength int
}

// Load reads .env (if present) and the environment. It fails on values
// that cannot be parsed rather than silently using the fallback.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	port, err := getEnvAsInt("PORT", 8080)
	collect(err)
	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	collect(err)
	maxSeries, err := getEnvAsInt("MAX_SERIES_LENGTH", 500)
	collect(err)
	enableSeed, err := getEnvAsBool("ENABLE_SEED", false)
	collect(err)
	ttl, err := getEnvAsDuration("TOKEN_TTL", 24*time.Hour)
	collect(err)
	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		collect(fmt.Errorf("TIMEZONE: %w", err))
		loc = time.UTC
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        port,
			CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
			Location:    loc,
			EnableSeed:  enableSeed,
		},
		Store: StoreConfig{
			Driver:      Driver(strings.ToLower(getEnv("STORE_DRIVER", string(DriverSQLite)))),
			SQLitePath:  getEnv("SQLITE_PATH", "operations.db"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  ttl,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		MaxSeriesLength: maxSeries,
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Validate checks cross-field requirements once flags have been applied.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxSeriesLength <= 0 {
		return fmt.Errorf("MAX_SERIES_LENGTH must be positive")
	}
	return nil
}

// =============================================================================
// ENV HELPERS
// =============================================================================

// getEnv treats an empty value like an unset one.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return n, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a boolean", key, raw)
	}
	return b, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a duration", key, raw)
	}
	return d, nil
}

func getEnvAsList(key string, fallback []string) []string {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
