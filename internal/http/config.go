package http

import (
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional dependencies may be nil, which
// leaves their routes unregistered.
type RouterConfig struct {
	// Core dependencies
	Catalog  CatalogSearcher
	Shelf    ShelfService
	Exports  ShelfExportService
	Database *database.Database

	// Cover caching
	Books      BookReader
	CoverCache CoverCache

	// Audit log reads
	Audit AuditReader

	// Task queue: reported by /health, triggered through the admin task routes
	TaskClient         *tasks.Client
	AuditRetentionDays int

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController
	SessionManager *auth.SessionManager
	LoginThrottle  *auth.IPThrottle
	CSRFSecret     []byte
	SecureCookies  bool

	// Application info
	Version string
}
