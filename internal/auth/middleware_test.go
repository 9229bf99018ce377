package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupMiddleware(t *testing.T, authMode config.AuthMode) (*Middleware, *Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.AutoMigrate(&entities.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := config.Auth{
		Mode:            authMode,
		OwnerUsername:   "owner",
		SessionLifetime: 24 * time.Hour,
		SecureCookies:   false,
		BcryptCost:      4, // Low cost for faster tests
	}

	service := NewService(users.NewRepository(db), cfg)
	middleware := NewMiddleware(service, nil, cfg)

	return middleware, service
}

// whoami echoes the identity the middleware resolved.
func whoami(c *gin.Context) {
	session := GetSession(c)
	username := ""
	if session != nil {
		username = session.Username
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":   GetUserID(c),
		"username":  username,
		"auth_type": GetAuthType(c),
	})
}

type whoamiResponse struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	AuthType AuthType `json:"auth_type"`
}

func serveWhoami(t *testing.T, router *gin.Engine, req *http.Request) whoamiResponse {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var resp whoamiResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestMiddleware_NoAuthMode_BindsOwner(t *testing.T) {
	middleware, _ := setupMiddleware(t, config.AuthModeNone)

	router := gin.New()
	router.Use(middleware.Handler())
	router.GET("/test", whoami)

	first := serveWhoami(t, router, httptest.NewRequest(http.MethodGet, "/test", nil))
	if first.UserID == 0 || first.Username != "owner" {
		t.Errorf("Expected owner session, got %+v", first)
	}
	if first.AuthType != AuthTypeOwner {
		t.Errorf("Expected auth type %q, got %q", AuthTypeOwner, first.AuthType)
	}

	second := serveWhoami(t, router, httptest.NewRequest(http.MethodGet, "/test", nil))
	if second.UserID != first.UserID {
		t.Errorf("Owner changed between requests: %d != %d", first.UserID, second.UserID)
	}
}

func TestMiddleware_LocalMode_Anonymous(t *testing.T) {
	middleware, _ := setupMiddleware(t, config.AuthModeLocal)

	router := gin.New()
	router.Use(middleware.Handler())
	router.GET("/test", whoami)

	resp := serveWhoami(t, router, httptest.NewRequest(http.MethodGet, "/test", nil))
	if resp.UserID != 0 {
		t.Errorf("Expected no user, got %d", resp.UserID)
	}
	if resp.AuthType != AuthTypeNone {
		t.Errorf("Expected auth type %q, got %q", AuthTypeNone, resp.AuthType)
	}
}

func TestMiddleware_BearerAuth_ValidToken(t *testing.T) {
	middleware, service := setupMiddleware(t, config.AuthModeLocal)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "reader", "reader@example.com", "password12345", entities.UserRoleReader)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	token, err := service.GenerateToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	router := gin.New()
	router.Use(middleware.Handler())
	router.GET("/test", whoami)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := serveWhoami(t, router, req)

	if resp.UserID != user.ID || resp.Username != "reader" {
		t.Errorf("Expected reader session, got %+v", resp)
	}
	if resp.AuthType != AuthTypeBearer {
		t.Errorf("Expected auth type %q, got %q", AuthTypeBearer, resp.AuthType)
	}
}

func TestMiddleware_BearerAuth_InvalidOrMalformed(t *testing.T) {
	middleware, _ := setupMiddleware(t, config.AuthModeLocal)

	router := gin.New()
	router.Use(middleware.Handler())
	router.GET("/test", whoami)

	headers := []string{
		"Bearer invalid-token",
		"Bearer",
		"Basic dXNlcjpwYXNz",
		"token-without-scheme",
	}

	for _, h := range headers {
		t.Run(h, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", h)
			resp := serveWhoami(t, router, req)
			if resp.UserID != 0 {
				t.Errorf("Expected anonymous request, got user %d", resp.UserID)
			}
		})
	}
}

func TestMiddleware_RequireAuth(t *testing.T) {
	middleware, service := setupMiddleware(t, config.AuthModeLocal)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "reader", "reader@example.com", "password12345", entities.UserRoleReader)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	token, _ := service.GenerateToken(ctx, user.ID)

	router := gin.New()
	router.Use(middleware.Handler())
	router.GET("/protected", middleware.RequireAuth(), whoami)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without auth, got %d", rr.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["code"] != "UNAUTHENTICATED" || body["level"] != "error" {
		t.Errorf("Unexpected error body: %v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", rr.Code)
	}
}

func TestMiddleware_RequireRole(t *testing.T) {
	middleware, service := setupMiddleware(t, config.AuthModeLocal)
	ctx := context.Background()

	admin, _ := service.CreateUser(ctx, "admin", "admin@example.com", "password12345", entities.UserRoleAdmin)
	reader, _ := service.CreateUser(ctx, "reader", "reader@example.com", "password12345", entities.UserRoleReader)
	adminToken, _ := service.GenerateToken(ctx, admin.ID)
	readerToken, _ := service.GenerateToken(ctx, reader.ID)

	router := gin.New()
	router.Use(middleware.Handler())
	router.GET("/admin", middleware.RequireRole(entities.UserRoleAdmin), whoami)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"admin allowed", adminToken, http.StatusOK},
		{"reader forbidden", readerToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestMiddleware_RequireRole_NoAuthMode(t *testing.T) {
	middleware, _ := setupMiddleware(t, config.AuthModeNone)

	router := gin.New()
	router.Use(middleware.Handler())
	router.GET("/admin", middleware.RequireRole(entities.UserRoleAdmin), whoami)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 in no-auth mode, got %d", rr.Code)
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetSession(c) != nil {
		t.Error("Expected nil session")
	}
	if GetUserID(c) != 0 {
		t.Error("Expected user ID 0")
	}
	if GetUserRole(c) != "" {
		t.Error("Expected empty role")
	}
	if GetAuthType(c) != AuthTypeNone {
		t.Error("Expected AuthTypeNone")
	}
}
