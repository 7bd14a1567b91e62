package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// DefaultJWTSecret signs sessions when JWT_SECRET is unset. Only fit for development.
const DefaultJWTSecret = "leadboard_dev_secret"

type Config struct {
	Port            string
	LogLevel        string
	DatabaseDriver  string
	DatabaseURL     string
	JWTSecret       string
	APIKey          string
	SinkURL         string
	SinkSecret      string
	HTTPTimeout     time.Duration
	RetryAttempts   int
	RefreshInterval time.Duration
	SessionTTL      time.Duration
	Timezone        string
	QualityScheme   string
	CORSOrigins     []string

	// Bootstrap account used by the setup command
	AdminUsername string
	AdminPassword string
	AdminName     string
}

// Load reads the given env files (or .env when none are passed) and then the
// process environment.
func Load(envFiles ...string) *Config {
	if err := godotenv.Load(envFiles...); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseDriver:  strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:     getEnv("DATABASE_URL", "leadboard.db"),
		JWTSecret:       getEnv("JWT_SECRET", DefaultJWTSecret),
		APIKey:          getEnv("API_KEY", ""),
		SinkURL:         getEnv("SINK_URL", ""),
		SinkSecret:      getEnv("SINK_SECRET", "leadboard_sink_secret"),
		HTTPTimeout:     getDuration("HTTP_TIMEOUT", 30*time.Second),
		RetryAttempts:   getInt("RETRY_ATTEMPTS", 3),
		RefreshInterval: getDuration("REFRESH_INTERVAL", 30*time.Second),
		SessionTTL:      getDuration("SESSION_TTL", 24*time.Hour),
		Timezone:        getEnv("TIMEZONE", "Local"),
		QualityScheme:   strings.ToLower(getEnv("QUALITY_SCHEME", "three")),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		AdminName:       getEnv("ADMIN_NAME", "Administrator"),
	}
}

// Location resolves Timezone, falling back to time.Local for unknown zones.
// DefaultSecret reports whether sessions are signed with DefaultJWTSecret.
func (c *Config) DefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		logrus.WithError(err).WithField("timezone", c.Timezone).Warn("Unknown timezone, using local time")
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := cast.ToDurationE(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	n, err := cast.ToIntE(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
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
