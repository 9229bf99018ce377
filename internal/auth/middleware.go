package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

// Keys under which Middleware stores the caller in the gin context.
const (
	ContextKeySession  = "auth_session"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type"
)

// AuthType records how the caller was identified.
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeOwner   AuthType = "owner"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// Middleware identifies the caller of each request and binds a shelf.Session to it.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
}

func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{service: service, sessionManager: sessionManager, config: cfg}
}

// Handler resolves the caller. It never aborts: a request without an
// identity carries no session, and shelf operations reject it as
// unauthenticated.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, how := m.identify(c)
		if user == nil {
			c.Set(ContextKeyAuthType, AuthTypeNone)
		} else {
			c.Set(ContextKeySession, shelf.NewSession(user.ID, user.Username))
			c.Set(ContextKeyRole, user.Role)
			c.Set(ContextKeyAuthType, how)
		}
		c.Next()
	}
}

// identify tries, in order: the local owner when auth is off, a bearer
// token, then the session cookie.
func (m *Middleware) identify(c *gin.Context) (*entities.User, AuthType) {
	ctx := c.Request.Context()

	if m.config.Mode == config.AuthModeNone {
		owner, err := m.service.Owner(ctx)
		if err != nil {
			log.Printf("[SESSION] resolve owner account: %v", err)
			return nil, AuthTypeNone
		}
		return owner, AuthTypeOwner
	}

	if token := bearerToken(c); token != "" {
		if user, err := m.service.ValidateToken(ctx, token); err == nil {
			return user, AuthTypeBearer
		}
	}

	if m.sessionManager != nil {
		if id := m.sessionManager.GetUserID(c.Request); id != 0 {
			if user, err := m.service.GetUserByID(ctx, id); err == nil {
				return user, AuthTypeSession
			}
		}
	}

	return nil, AuthTypeNone
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is case-insensitive.
func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth aborts with 401 when the request carries no identity.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetSession(c).Authenticated() {
			respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller holds one of roles.
// The local owner holds every role.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	allowed := make(map[entities.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		if m.config.Mode != config.AuthModeNone {
			if _, ok := allowed[GetUserRole(c)]; !ok {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
		}
		c.Next()
	}
}

// GetSession returns the caller's shelf session, or nil when unauthenticated.
func GetSession(c *gin.Context) *shelf.Session {
	v, _ := c.Get(ContextKeySession)
	session, _ := v.(*shelf.Session)
	return session
}

// GetUserID returns the caller's user ID, or 0.
func GetUserID(c *gin.Context) uint {
	if session := GetSession(c); session.Authenticated() {
		return session.UserID
	}
	return 0
}

func GetUserRole(c *gin.Context) entities.UserRole {
	v, _ := c.Get(ContextKeyRole)
	role, _ := v.(entities.UserRole)
	return role
}

func GetAuthType(c *gin.Context) AuthType {
	v, _ := c.Get(ContextKeyAuthType)
	if how, ok := v.(AuthType); ok {
		return how
	}
	return AuthTypeNone
}
