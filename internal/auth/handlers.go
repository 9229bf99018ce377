package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// AuthAuditor records login, logout and token events.
type AuthAuditor interface {
	LogAuth(ctx context.Context, userID uint, action, ipAddr string, success bool)
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID       uint              `json:"id"`
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Role     entities.UserRole `json:"role"`
}

func newUserResponse(u *entities.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  code,
		"level": "error",
	})
}

// AuthController handles the JSON authentication endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	auditor        AuthAuditor
}

// NewAuthController creates a new authentication controller.
// Repeated failures lock the account in Service.Authenticate; the optional
// IPThrottle on RegisterRoutes bounds how fast one client can try.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
	}
}

// SetAuditor enables auth event auditing.
func (ac *AuthController) SetAuditor(auditor AuthAuditor) {
	ac.auditor = auditor
}

// RegisterRoutes registers authentication routes on the group.
// throttle may be nil.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup, mw *Middleware, throttle *IPThrottle) {
	public := []gin.HandlerFunc{}
	if throttle != nil {
		public = append(public, throttle.Middleware())
	}

	group.POST("/register", append(public, ac.Register)...)
	group.POST("/login", append(public, ac.Login)...)
	group.POST("/logout", ac.Logout)

	protected := group.Group("", mw.RequireAuth())
	protected.GET("/me", ac.Me)
	protected.POST("/token", ac.GenerateToken)
	protected.DELETE("/token", ac.RevokeToken)
}

// Register creates an account and logs it in.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "BAD_REQUEST", "username, valid email and password are required")
		return
	}

	user, err := ac.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		status, code, message := http.StatusInternalServerError, "INTERNAL", "failed to create user"
		switch {
		case errors.Is(err, ErrUserExists):
			status, code, message = http.StatusConflict, "USER_EXISTS", "username or email already registered"
		case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong),
			errors.Is(err, ErrUsernameInvalid), errors.Is(err, ErrEmailInvalid):
			status, code, message = http.StatusBadRequest, "BAD_REQUEST", err.Error()
		default:
			log.Printf("Failed to register user %s: %v", req.Username, err)
		}
		respondError(c, status, code, message)
		return
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			log.Printf("Failed to create session for user %d: %v", user.ID, err)
		}
	}
	ac.audit(c, user.ID, "register", true)

	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(user)})
}

// Login authenticates credentials and starts a cookie session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "BAD_REQUEST", "login and password are required")
		return
	}
	user, err := ac.service.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		ac.audit(c, 0, "login", false)

		if errors.Is(err, ErrAccountLocked) {
			respondError(c, http.StatusLocked, "ACCOUNT_LOCKED", "account is locked, try again later")
			return
		}
		// Unknown user and wrong password are indistinguishable to the caller
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
		return
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			log.Printf("Failed to create session for user %d: %v", user.ID, err)
			respondError(c, http.StatusInternalServerError, "INTERNAL", "failed to create session")
			return
		}
	}
	ac.audit(c, user.ID, "login", true)

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// Logout destroys the cookie session.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := uint(0)
	if ac.sessionManager != nil {
		userID = ac.sessionManager.GetUserID(c.Request)
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	if userID != 0 {
		ac.audit(c, userID, "logout", true)
	}
	c.JSON(http.StatusOK, gin.H{"notice": "logged out", "level": "info"})
}

// Me returns the authenticated user.
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.service.GetUserByID(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// GenerateToken creates a new API token for the authenticated user.
func (ac *AuthController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)

	token, err := ac.service.GenerateToken(c.Request.Context(), userID)
	if err != nil {
		log.Printf("Failed to generate token for user %d: %v", userID, err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "failed to generate token")
		return
	}
	ac.audit(c, userID, "token_generate", true)

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (ac *AuthController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)

	if err := ac.service.RevokeToken(c.Request.Context(), userID); err != nil {
		log.Printf("Failed to revoke token for user %d: %v", userID, err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "failed to revoke token")
		return
	}
	ac.audit(c, userID, "token_revoke", true)

	c.JSON(http.StatusOK, gin.H{"notice": "token revoked", "level": "info"})
}

func (ac *AuthController) audit(c *gin.Context, userID uint, action string, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(c.Request.Context(), userID, action, c.ClientIP(), success)
}
