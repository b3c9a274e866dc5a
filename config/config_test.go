package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "8001", cfg.SocketPort)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.BookingRequestTTL)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "*/5 * * * *", cfg.SweepSchedule)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"PORT":                "9000",
		"DATABASE_URL":        "postgres://localhost/carenest",
		"REDIS_ADDR":          "localhost:6379",
		"REDIS_DB":            "3",
		"BOOKING_REQUEST_TTL": "12h",
		"TIMEZONE":            "Europe/London",
		"LOG_LEVEL":           "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres://localhost/carenest", cfg.DatabaseURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 12*time.Hour, cfg.BookingRequestTTL)
	assert.Equal(t, "Europe/London", cfg.Location().String())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnv_RejectsMalformedValues(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{
		"SMTP_PORT":        "smtp",
		"ACCESS_TOKEN_TTL": "forever",
		"TIMEZONE":         "Mars/Olympus",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_PORT")
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_TTL")
	assert.Contains(t, err.Error(), "TIMEZONE")
}

func TestGetReturnsInstalledConfig(t *testing.T) {
	cfg := &Config{Port: "1234", JWTSecret: "s"}
	Set(cfg)
	t.Cleanup(func() { Set(nil) })

	assert.Same(t, cfg, Get())
}
