package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	auditrepo "github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/entries"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/exporters"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/shelf"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// Login/register attempts allowed per client IP per minute.
const (
	loginThrottlePerMinute = 10
	loginThrottleBurst     = 5
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before the workers they enqueue into go away
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookshelf v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path, cfg.Database.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	bookRepo := books.NewRepository(db.DB)
	entryRepo := entries.NewRepository(db.DB)
	userRepo := users.NewRepository(db.DB)

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	defer auditService.Wait()

	catalogClient := catalog.NewClient(cfg.Catalog)

	coverCache, err := covers.NewCache(cfg.Covers.Dir, cfg.Catalog.UserAgent)
	if err != nil {
		log.Printf("WARNING: Failed to initialize cover cache: %v", err)
	} else {
		log.Printf("Cover cache initialized at %s", coverCache.CacheDir())
	}

	resolver := shelf.NewResolver(bookRepo, cfg.Catalog.CoverURLTemplate)
	shelfService := shelf.NewService(bookRepo, entryRepo, resolver)
	shelfService.SetAuditor(auditService)

	exportService := exporters.NewService(shelfService)
	exportService.SetAuditor(auditService)

	// Task queue: cover warming and audit retention
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromAppConfig(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(tasks.NewCleanupAuditEventsQueue(auditService))
		if coverCache != nil {
			taskClient.Register(
				tasks.NewWarmCoverQueue(bookRepo, coverCache),
				tasks.NewWarmAllCoversQueue(bookRepo, coverCache),
			)
			if cfg.Covers.Warmup {
				resolver.SetCoverWarmer(tasks.NewCoverWarmer(taskClient))
			}
		}

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		maintenance = scheduler.NewMaintenanceScheduler(taskClient, scheduler.MaintenanceConfig{
			Schedule:           cfg.Audit.CleanupSchedule,
			AuditRetentionDays: cfg.Audit.RetentionDays,
			WarmCovers:         coverCache != nil && cfg.Covers.Warmup,
		})
		if err := maintenance.Start(taskCtx); err != nil {
			log.Printf("WARNING: Maintenance schedule disabled: %v", err)
		}
	} else {
		log.Printf("Task queue disabled: covers are fetched on first request and audit events are kept forever")
	}

	// Authentication. In none mode every request runs as the local owner.
	authService := auth.NewService(userRepo, cfg.Auth)
	var sessionManager *auth.SessionManager
	var authController *auth.AuthController
	var loginThrottle *auth.IPThrottle
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}
		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}

		csrfSecret = loadCSRFSecret(cfg.Auth.SessionSecret)

		authController = auth.NewAuthController(authService, sessionManager, cfg.Auth)
		authController.SetAuditor(auditService)
		loginThrottle = auth.NewIPThrottle(loginThrottlePerMinute, loginThrottleBurst)

		hasUsers, _ := authService.HasUsers(context.Background())
		if !hasUsers {
			log.Printf("No users found. POST /api/auth/register creates the administrator account.")
		}
	} else {
		log.Printf("Authentication mode: none (every request runs as %q)", cfg.Auth.OwnerUsername)
	}
	authMiddleware := auth.NewMiddleware(authService, sessionManager, cfg.Auth)

	routerCfg := http_controllers.RouterConfig{
		Catalog:            catalogClient,
		Shelf:              shelfService,
		Exports:            exportService,
		Database:           db,
		Books:              bookRepo,
		Audit:              auditService,
		AuthService:        authService,
		AuthMiddleware:     authMiddleware,
		AuthController:     authController,
		SessionManager:     sessionManager,
		LoginThrottle:      loginThrottle,
		CSRFSecret:         csrfSecret,
		SecureCookies:      cfg.Auth.SecureCookies,
		TaskClient:         taskClient,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		Version:            version,
	}
	// A nil *covers.Cache must not become a non-nil interface
	if coverCache != nil {
		routerCfg.CoverCache = coverCache
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// loadCSRFSecret decodes a hex secret, uses any other value as raw bytes,
// and generates a fresh one when none is configured.
func loadCSRFSecret(configured string) []byte {
	if configured != "" {
		secret, err := hex.DecodeString(configured)
		if err != nil {
			return []byte(configured)
		}
		return secret
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}
	secret, _ := hex.DecodeString(generated)
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return secret
}
