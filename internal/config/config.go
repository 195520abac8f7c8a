package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Media
		Pagination
		API
		Auth
		Mail
		Tasks
		Maintenance
		Audit
		Metrics
	}

	HTTP struct {
		Port    int32
		Host    string
		BaseURL string // Absolute origin used for API pagination links when set
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver string // "sqlite" or "postgres"
		Path   string
		DSN    string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Media struct {
		Dir            string
		MaxUploadBytes int64
	}
	Pagination struct {
		PageSize    int // Web page size (home feed, book list)
		APIPageSize int
		MaxPageSize int
	}
	API struct {
		EnforceReviewOwnership bool
		// WritesPerMinute throttles review writes per user; 0 disables.
		WritesPerMinute int
		WriteBurst      int
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int
		RateLimitWindow  time.Duration
		LockoutDuration  time.Duration
	}
	Mail struct {
		SMTPHost string // Empty means emails are only logged
		SMTPPort int
		Username string
		Password string
		From     string
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		TaskTimeout     time.Duration
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Maintenance struct {
		Enabled  bool
		Schedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
	Audit struct {
		RetentionDays int
	}
	Metrics struct {
		Enabled bool
	}
)

// NewConfig reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func NewConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded, using process environment")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("base_url", "")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")
	v.SetDefault("media_dir", DefaultMediaDir)
	v.SetDefault("media_max_upload_bytes", 5<<20)

	v.SetDefault("page_size", DefaultPageSize)
	v.SetDefault("api_page_size", DefaultAPIPageSize)
	v.SetDefault("max_page_size", DefaultMaxPageSize)
	v.SetDefault("api_enforce_review_ownership", false)
	v.SetDefault("api_writes_per_minute", 30)
	v.SetDefault("api_write_burst", 10)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "336h") // Two weeks
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("mail_from", "noreply@goodreads.local")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_timeout", "1m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_schedule", "30 3 * * *")
	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("metrics_enabled", true)

	return &Config{
		HTTP: HTTP{
			Port:    v.GetInt32("PORT"),
			Host:    v.GetString("HOST"),
			BaseURL: v.GetString("BASE_URL"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver: v.GetString("DATABASE_DRIVER"),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Media: Media{
			Dir:            v.GetString("MEDIA_DIR"),
			MaxUploadBytes: v.GetInt64("MEDIA_MAX_UPLOAD_BYTES"),
		},
		Pagination: Pagination{
			PageSize:    v.GetInt("PAGE_SIZE"),
			APIPageSize: v.GetInt("API_PAGE_SIZE"),
			MaxPageSize: v.GetInt("MAX_PAGE_SIZE"),
		},
		API: API{
			EnforceReviewOwnership: v.GetBool("API_ENFORCE_REVIEW_OWNERSHIP"),
			WritesPerMinute:        v.GetInt("API_WRITES_PER_MINUTE"),
			WriteBurst:             v.GetInt("API_WRITE_BURST"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Mail: Mail{
			SMTPHost: v.GetString("SMTP_HOST"),
			SMTPPort: v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("MAIL_FROM"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			TaskTimeout:     v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Maintenance: Maintenance{
			Enabled:  v.GetBool("MAINTENANCE_ENABLED"),
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
}
