package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting read from the environment.
type Config struct {
	Port       string `default:"8000"`
	SocketPort string `default:"8001"`

	DatabaseURL string

	JWTSecret       string        `default:"solid_secret_key"`
	AccessTokenTTL  time.Duration `default:"24h"`
	RefreshTokenTTL time.Duration `default:"168h"`

	RedisAddr     string
	RedisPassword string
	RedisDB       int `default:"0"`

	SMTPHost  string
	SMTPPort  int `default:"587"`
	EmailUser string
	EmailPass string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadPreset string

	Timezone  string `default:"UTC"`
	LogLevel  string `default:"info"`
	LogFormat string `default:"json"`

	BookingRequestTTL time.Duration `default:"48h"`
	SweepSchedule     string        `default:"*/5 * * * *"`
	ReminderSchedule  string        `default:"* * * * *"`
	CORSOrigins       string        `default:"*"`
}

var (
	mu      sync.RWMutex
	current *Config
)

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file. Using environment variables directly.")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function on top of defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("SOCKET_PORT", &cfg.SocketPort)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	str("SMTP_HOST", &cfg.SMTPHost)
	str("EMAIL_USER", &cfg.EmailUser)
	str("EMAIL_PASS", &cfg.EmailPass)
	str("CLOUDINARY_CLOUD_NAME", &cfg.CloudinaryCloudName)
	str("CLOUDINARY_API_KEY", &cfg.CloudinaryAPIKey)
	str("CLOUDINARY_API_SECRET", &cfg.CloudinaryAPISecret)
	str("CLOUDINARY_UPLOAD_PRESET", &cfg.CloudinaryUploadPreset)
	str("TIMEZONE", &cfg.Timezone)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("SWEEP_SCHEDULE", &cfg.SweepSchedule)
	str("REMINDER_SCHEDULE", &cfg.ReminderSchedule)
	str("CORS_ORIGINS", &cfg.CORSOrigins)

	var errs []string
	num := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %q is not a number", key, v))
			return
		}
		*dst = n
	}
	dur := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: %q is not a positive duration", key, v))
			return
		}
		*dst = d
	}
	num("REDIS_DB", &cfg.RedisDB)
	num("SMTP_PORT", &cfg.SMTPPort)
	dur("ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL)
	dur("REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL)
	dur("BOOKING_REQUEST_TTL", &cfg.BookingRequestTTL)

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("TIMEZONE: unknown location %q", cfg.Timezone))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Location returns the configured business timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Set installs cfg as the process-wide configuration.
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	current = cfg
}

// Get returns the process-wide configuration, loading it from the
// environment on first use.
func Get() *Config {
	mu.RLock()
	cfg := current
	mu.RUnlock()
	if cfg != nil {
		return cfg
	}

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		log.Printf("Warning: %v; falling back to defaults", err)
		cfg = &Config{}
		_ = defaults.Set(cfg)
	}
	Set(cfg)
	return cfg
}
