package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// The cookie session holds the user id only. Username and role are
// reloaded from the users table on every request so that a demoted or
// deleted account loses access immediately.
const (
	sessionKeyUserID  = "user_id"
	sessionKeyLoginAt = "login_at"
)

const sessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

func init() {
	gob.Register(time.Time{})
}

// SessionManager stores cookie sessions in the application database.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates the sessions table if needed and configures
// strict, HTTP-only cookies. sqlDB is the handle underneath GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	if _, err := sqlDB.Exec(sessionsSchema); err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession binds the session to user after a successful login.
// The token is renewed first to prevent session fixation.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User) error {
	ctx := r.Context()
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, sessionKeyUserID, int(user.ID))
	sm.Put(ctx, sessionKeyLoginAt, time.Now())
	return nil
}

// DestroySession logs the session out.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID returns the logged-in user id, or 0.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), sessionKeyUserID))
}

// LoginTime returns when the session was created; zero when logged out.
func (sm *SessionManager) LoginTime(r *http.Request) time.Time {
	at, _ := sm.Get(r.Context(), sessionKeyLoginAt).(time.Time)
	return at
}
