package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_DRIVER", "DATABASE_PATH", "PAGE_SIZE", "API_PAGE_SIZE", "MAX_PAGE_SIZE",
		"API_WRITES_PER_MINUTE", "API_WRITE_BURST", "AUTH_SESSION_LIFETIME", "AUTH_BCRYPT_COST",
		"SMTP_HOST", "MAINTENANCE_SCHEDULE", "AUDIT_RETENTION_DAYS",
	} {
		t.Setenv(key, "")
	}

	cfg := NewConfig()

	assert.Equal(t, int32(8000), cfg.HTTP.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultPageSize, cfg.Pagination.PageSize)
	assert.Equal(t, DefaultAPIPageSize, cfg.Pagination.APIPageSize)
	assert.Equal(t, DefaultMaxPageSize, cfg.Pagination.MaxPageSize)
	assert.Equal(t, 30, cfg.API.WritesPerMinute)
	assert.Equal(t, 10, cfg.API.WriteBurst)
	assert.Equal(t, 336*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Empty(t, cfg.Mail.SMTPHost)
	assert.Equal(t, "30 3 * * *", cfg.Maintenance.Schedule)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", DriverPostgres)
	t.Setenv("DATABASE_DSN", "postgres://goodreads@localhost/goodreads")
	t.Setenv("PAGE_SIZE", "5")
	t.Setenv("API_ENFORCE_REVIEW_OWNERSHIP", "true")
	t.Setenv("API_WRITES_PER_MINUTE", "0")
	t.Setenv("AUTH_LOCKOUT_DURATION", "1h")
	t.Setenv("TASKS_ENABLED", "false")

	cfg := NewConfig()

	assert.Equal(t, int32(9090), cfg.HTTP.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://goodreads@localhost/goodreads", cfg.Database.DSN)
	assert.Equal(t, 5, cfg.Pagination.PageSize)
	assert.True(t, cfg.API.EnforceReviewOwnership)
	assert.Equal(t, 0, cfg.API.WritesPerMinute)
	assert.Equal(t, time.Hour, cfg.Auth.LockoutDuration)
	assert.False(t, cfg.Tasks.Enabled)
}
