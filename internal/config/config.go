// Package config provides centralized configuration loaded from environment
// variables and an optional YAML file. Shared by cmd/notifier and
// cmd/notifierctl.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// --------------------------------------------------------------------------
// Store drivers
// --------------------------------------------------------------------------

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// ChildTrack backend
	BackendURL           string
	AttendancePath       string
	EventsPath           string
	GuardiansPath        string
	LoginPath            string
	HTTPTimeout          time.Duration
	APIRequestsPerMinute int
	MaxPages             int

	// Polling
	PollInterval time.Duration
	Timezone     string // IANA name for "today"; empty means the host zone

	// Persistent store
	StoreDriver   string
	StorePrefix   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string

	// Local API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	LogLevel    string

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Local notification center
	NotificationPermission string // granted, denied
	InboxRetention         time.Duration
	MaintenanceInterval    time.Duration
}

// Load reads configuration from the environment (and NOTIFIER_CONFIG, when
// set) with sensible defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("NOTIFIER_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		BackendURL:           strings.TrimRight(v.GetString("backend_url"), "/"),
		AttendancePath:       v.GetString("attendance_path"),
		EventsPath:           v.GetString("events_path"),
		GuardiansPath:        v.GetString("guardians_path"),
		LoginPath:            v.GetString("login_path"),
		HTTPTimeout:          v.GetDuration("http_timeout"),
		APIRequestsPerMinute: v.GetInt("api_requests_per_minute"),
		MaxPages:             v.GetInt("max_pages"),

		PollInterval: v.GetDuration("poll_interval"),
		Timezone:     v.GetString("school_timezone"),

		StoreDriver:   strings.ToLower(v.GetString("store_driver")),
		StorePrefix:   v.GetString("store_prefix"),
		SQLitePath:    v.GetString("sqlite_path"),
		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		DatabaseURL:   v.GetString("database_url"),

		APIHost:     v.GetString("api_host"),
		APIPort:     v.GetInt("api_port"),
		Environment: v.GetString("environment"),
		LogLevel:    v.GetString("log_level"),

		CORSAllowOrigins: splitList(v.GetString("cors_allow_origins")),

		RateLimitEnabled:  v.GetBool("rate_limit_enabled"),
		RateLimitRequests: v.GetInt("rate_limit_requests"),
		RateLimitWindow:   v.GetDuration("rate_limit_window"),

		NotificationPermission: strings.ToLower(v.GetString("notifications_permission")),
		InboxRetention:         v.GetDuration("inbox_retention"),
		MaintenanceInterval:    v.GetDuration("maintenance_interval"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend_url", "https://childtrack-backend.onrender.com")
	v.SetDefault("attendance_path", "/api/attendance/public/")
	v.SetDefault("events_path", "/api/parents/events/")
	v.SetDefault("guardians_path", "/api/guardian/public/")
	v.SetDefault("login_path", "/api/parents/login/")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("api_requests_per_minute", 120)
	v.SetDefault("max_pages", 10)

	v.SetDefault("poll_interval", 30*time.Second)
	v.SetDefault("school_timezone", "")

	v.SetDefault("store_driver", DriverSQLite)
	v.SetDefault("store_prefix", "notifier")
	v.SetDefault("sqlite_path", "notifier.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("database_url", "")

	v.SetDefault("api_host", "127.0.0.1")
	v.SetDefault("api_port", 8088)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("cors_allow_origins", "http://localhost:8081,http://localhost:19006")

	v.SetDefault("rate_limit_enabled", true)
	v.SetDefault("rate_limit_requests", 120)
	v.SetDefault("rate_limit_window", time.Minute)

	v.SetDefault("notifications_permission", "granted")
	v.SetDefault("inbox_retention", 72*time.Hour)
	v.SetDefault("maintenance_interval", 30*time.Minute)
}

// Validate rejects configurations the notifier cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL %q is not an absolute URL", c.BackendURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverRedis:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres store driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.NotificationPermission {
	case "granted", "denied":
	default:
		return fmt.Errorf("NOTIFICATIONS_PERMISSION must be granted or denied, got %q", c.NotificationPermission)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.MaxPages < 1 {
		c.MaxPages = 1
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location resolves SCHOOL_TIMEZONE, falling back to the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("SCHOOL_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
