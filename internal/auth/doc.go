// Package auth identifies the caller of every request and binds a
// shelf.Session to it.
//
// It supports two authentication modes:
//   - "none": No login (default); every request runs as a single local owner account
//   - "local": Local user database with session cookies and Bearer API tokens
//
// # Configuration
//
// Set AUTH_MODE environment variable to select the mode:
//
//	AUTH_MODE=none   # Default, no auth required
//	AUTH_MODE=local  # Requires registration and login
//
// For local mode, additional configuration:
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_TOKEN_EXPIRY=720h              # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//
// # Usage
//
// Initialize authentication in entrypoint:
//
//	authService := auth.NewService(users.NewRepository(db), cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager, cfg.Auth)
//	router.Use(authMiddleware.Handler())
//
// Extract the session in handlers:
//
//	session := auth.GetSession(c) // nil when unauthenticated
package auth
