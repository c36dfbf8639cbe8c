// Package auth provides authentication and authorization for the API.
//
// Callers authenticate in one of two ways:
//   - Bearer access tokens (HS256 JWT) returned by POST /auth/login, for API clients
//   - Cookie sessions opened by the same login, so plain browser links such as
//     downloads work without an Authorization header
//
// # Configuration
//
//	AUTH_SECRET_KEY=<random string>     # Token and CSRF signing key, generated per process if empty
//	AUTH_TOKEN_EXPIRY=30m               # Access token lifetime
//	AUTH_SESSION_LIFETIME=24h           # Cookie session lifetime
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=false           # HTTPS-only cookies and HSTS when true
//	AUTH_MAX_LOGIN_ATTEMPTS=5           # Per-account failures before lockout
//	AUTH_LOCKOUT_DURATION=30m           # Lockout duration
//	AUTH_IP_LOGIN_FAILURES=20           # Per-IP failures per window before 429
//	AUTH_RATE_LIMIT_WINDOW=15m          # Window for per-IP failures
//
// # Usage
//
//	authService := auth.NewService(usersRepo, auth.NewTokenIssuer(secret, cfg.Auth.TokenExpiry), cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager)
//	router.Use(authMiddleware.Handler())
//	admin := router.Group("/admin", authMiddleware.RequireAdmin())
//
// Extract the caller in handlers:
//
//	user := auth.CurrentUser(c) // nil for anonymous requests
package auth
