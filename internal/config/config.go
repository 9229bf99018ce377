package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Single local owner, no login (default)
	AuthModeLocal AuthMode = "local" // Local user database with sessions and API tokens
)

type (
	Config struct {
		HTTP
		Global
		Database
		Catalog
		Covers
		Audit
		Tasks
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path     string
		LogLevel string // silent, error, warn, info
	}
	Catalog struct {
		BaseURL           string
		CoverURLTemplate  string // fmt template taking the numeric cover id
		UserAgent         string
		Timeout           time.Duration
		RequestsPerSecond float64 // 0 disables pacing
	}
	Covers struct {
		Dir    string
		Warmup bool // Enqueue a cover download whenever a new Book is created
	}
	Audit struct {
		RetentionDays   int
		CleanupSchedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Auth struct {
		Mode            AuthMode
		OwnerUsername   string // Account bound to every request in AuthModeNone
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_log_level", "warn")

	// Open Library
	v.SetDefault("catalog_base_url", DefaultCatalogBaseURL)
	v.SetDefault("catalog_cover_url_template", DefaultCoverURLTemplate)
	v.SetDefault("catalog_user_agent", DefaultUserAgent)
	v.SetDefault("catalog_timeout", "10s")
	v.SetDefault("catalog_requests_per_second", 1.0)

	v.SetDefault("covers_dir", "./covers")
	v.SetDefault("covers_warmup", true)

	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_owner_username", "owner")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:     v.GetString("DATABASE_PATH"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		Catalog: Catalog{
			BaseURL:           v.GetString("CATALOG_BASE_URL"),
			CoverURLTemplate:  v.GetString("CATALOG_COVER_URL_TEMPLATE"),
			UserAgent:         v.GetString("CATALOG_USER_AGENT"),
			Timeout:           v.GetDuration("CATALOG_TIMEOUT"),
			RequestsPerSecond: v.GetFloat64("CATALOG_REQUESTS_PER_SECOND"),
		},
		Covers: Covers{
			Dir:    v.GetString("COVERS_DIR"),
			Warmup: v.GetBool("COVERS_WARMUP"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			OwnerUsername:    v.GetString("AUTH_OWNER_USERNAME"),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
	}
}
