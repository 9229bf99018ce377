package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/requestid"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Binds the shelf session; requests without one reach the controllers
	// unauthenticated and fail there with a 401 notice
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	if cfg.TaskClient != nil {
		health.SetTasks(cfg.TaskClient)
	}
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")

	if cfg.AuthController != nil && cfg.AuthMiddleware != nil {
		cfg.AuthController.RegisterRoutes(api.Group("/auth"), cfg.AuthMiddleware, cfg.LoginThrottle)

		profileController := NewProfileController(cfg.AuthService)
		api.PUT("/auth/password", cfg.AuthMiddleware.RequireAuth(), profileController.ChangePassword)
	}

	if cfg.Catalog != nil {
		catalogController := NewCatalogController(cfg.Catalog)
		api.GET("/catalog/search", catalogController.Search)
		api.GET("/catalog/editions", catalogController.Editions)
	}

	if cfg.Shelf != nil {
		shelfController := NewShelfController(cfg.Shelf)
		api.GET("/shelf", shelfController.List)
		api.POST("/shelf", shelfController.Add)
		api.GET("/shelf/stats", shelfController.Stats)
		api.GET("/shelf/:id", shelfController.Get)
		api.DELETE("/shelf/:id", shelfController.Remove)
		api.PUT("/shelf/:id/status", shelfController.SetStatus)
		api.PUT("/shelf/:id/tags", shelfController.SetTags)
		api.POST("/shelf/:id/rereads", shelfController.StartReread)
		api.POST("/shelf/:id/rereads/complete", shelfController.CompleteReread)
	}

	if cfg.Exports != nil {
		exportController := NewExportController(cfg.Exports)
		api.GET("/shelf/export", exportController.Export)
	}

	if cfg.CoverCache != nil && cfg.Books != nil {
		coversController := NewCoversController(cfg.CoverCache, cfg.Books)
		api.GET("/books/:id/cover", coversController.GetCover)
	}

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		api.GET("/audit", requireSession, auditController.GetAuditEvents)
		api.GET("/shelf/:id/history", requireSession, auditController.GetEntryHistory)
	}

	// Task management endpoints
	if cfg.TaskClient != nil && cfg.AuthMiddleware != nil {
		tasksController := NewTasksController(cfg.TaskClient, cfg.AuditRetentionDays)
		admin := api.Group("/tasks", requireSession, cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin))
		admin.GET("/types", tasksController.ListTaskTypes)
		admin.GET("/:id", tasksController.GetTaskStatus)
		admin.POST("/:type/run", tasksController.RunTask)
	}

	return router
}

// requireSession guards routes that read per-user data outside the shelf service.
func requireSession(c *gin.Context) {
	if !auth.GetSession(c).Authenticated() {
		respondServiceError(c, shelf.ErrUnauthenticated, "require session")
		return
	}
	c.Next()
}
