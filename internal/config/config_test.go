package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "JWT_SECRET", "HTTP_TIMEOUT", "RETRY_ATTEMPTS", "REFRESH_INTERVAL", "QUALITY_SCHEME", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load("testdata/missing.env")

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.DefaultSecret())
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "three", cfg.QualityScheme)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "production-secret")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("RETRY_ATTEMPTS", "7")
	t.Setenv("REFRESH_INTERVAL", "1m")
	t.Setenv("QUALITY_SCHEME", "FOUR")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load("testdata/missing.env")

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.DefaultSecret())
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 7, cfg.RetryAttempts)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "four", cfg.QualityScheme)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRejectsGarbageNumbers(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")
	t.Setenv("RETRY_ATTEMPTS", "-2")

	cfg := Load("testdata/missing.env")

	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Local"}
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = "UTC"
	assert.Equal(t, "UTC", cfg.Location().String())

	cfg.Timezone = "Nowhere/Atlantis"
	assert.Equal(t, time.Local, cfg.Location())
}
