package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func newTestSessionManager(t *testing.T, secure bool) *SessionManager {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sessions.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	sm, err := NewSessionManager(sqlDB, config.Auth{
		Mode:            config.AuthModeLocal,
		SessionLifetime: 24 * time.Hour,
		SecureCookies:   secure,
	})
	require.NoError(t, err)
	return sm
}

// withSessions runs fn inside scs LoadAndSave and returns the recorder.
func withSessions(t *testing.T, sm *SessionManager, req *http.Request, fn func(r *http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(r)
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)
	return rr
}

func TestNewSessionManager_Cookie(t *testing.T) {
	sm := newTestSessionManager(t, false)

	assert.Equal(t, "session", sm.Cookie.Name)
	assert.True(t, sm.Cookie.HttpOnly)
	assert.False(t, sm.Cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, sm.Cookie.SameSite)
	assert.Equal(t, 12*time.Hour, sm.IdleTimeout)

	assert.True(t, newTestSessionManager(t, true).Cookie.Secure)
}

func TestSessionManager_Lifecycle(t *testing.T) {
	sm := newTestSessionManager(t, false)
	reader := &entities.User{ID: 42, Username: "reader", Role: entities.UserRoleReader}

	rr := withSessions(t, sm, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), func(r *http.Request) {
		assert.Zero(t, sm.GetUserID(r))
		assert.True(t, sm.LoginTime(r).IsZero())

		require.NoError(t, sm.CreateSession(r, reader))
		assert.Equal(t, uint(42), sm.GetUserID(r))
		assert.False(t, sm.LoginTime(r).IsZero())
	})

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)

	// The cookie alone identifies the user on the next request
	next := httptest.NewRequest(http.MethodGet, "/api/shelf", nil)
	next.AddCookie(cookies[0])
	withSessions(t, sm, next, func(r *http.Request) {
		assert.Equal(t, uint(42), sm.GetUserID(r))

		require.NoError(t, sm.DestroySession(r))
		assert.Zero(t, sm.GetUserID(r))
	})
}
