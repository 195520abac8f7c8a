package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
	SessionKeyIsStaff  = "is_staff"
	SessionKeyLoginAt  = "login_at"
	sessionKeyFlashes  = "flashes"
)

// Flash levels, used as CSS classes by the templates.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "danger"
)

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Level   string
	Message string
}

func init() {
	gob.Register(time.Time{})
	gob.Register([]Flash{})
}

const sqliteSessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

const postgresSessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BYTEA NOT NULL,
	expiry TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions (expiry);`

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager backed by the application
// database. driver selects the matching scs store.
func NewSessionManager(sqlDB *sql.DB, driver string, cfg config.Auth) (*SessionManager, error) {
	sm := scs.New()

	switch driver {
	case "", config.DriverSQLite:
		if _, err := sqlDB.Exec(sqliteSessionsSchema); err != nil {
			return nil, fmt.Errorf("failed to create sessions table: %w", err)
		}
		sm.Store = sqlite3store.New(sqlDB)
	case config.DriverPostgres:
		if _, err := sqlDB.Exec(postgresSessionsSchema); err != nil {
			return nil, fmt.Errorf("failed to create sessions table: %w", err)
		}
		sm.Store = postgresstore.New(sqlDB)
	default:
		return nil, fmt.Errorf("no session store for driver %q", driver)
	}

	if cfg.SessionLifetime > 0 {
		sm.Lifetime = cfg.SessionLifetime
	}

	sm.Cookie.Name = "sessionid"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	// Lax keeps the session on links followed from other sites.
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession logs user in on this request's session.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	sm.Put(r.Context(), SessionKeyUserID, int(user.ID))
	sm.Put(r.Context(), SessionKeyUsername, user.Username)
	sm.Put(r.Context(), SessionKeyIsStaff, user.IsStaff)
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now())

	return nil
}

// DestroySession removes all session data and invalidates the session.
// Flashes added afterwards travel in a fresh anonymous session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID retrieves the user ID from the session.
// Returns 0 if not authenticated.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyUserID))
}

// IsAuthenticated returns true if the request has a logged-in session.
func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetUserID(r) != 0
}

// AddFlash queues a message for the next rendered page.
func (sm *SessionManager) AddFlash(ctx context.Context, level, message string) {
	flashes, _ := sm.Get(ctx, sessionKeyFlashes).([]Flash)
	sm.Put(ctx, sessionKeyFlashes, append(flashes, Flash{Level: level, Message: message}))
}

// PopFlashes returns and clears the queued messages.
func (sm *SessionManager) PopFlashes(ctx context.Context) []Flash {
	flashes, _ := sm.Pop(ctx, sessionKeyFlashes).([]Flash)
	return flashes
}
