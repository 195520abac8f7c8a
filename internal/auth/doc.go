// Package auth provides accounts, sessions and request authentication.
//
// Web pages authenticate with a session cookie managed by scs and stored in
// the application database. The REST API additionally accepts HTTP Basic
// credentials on every request; such requests skip the CSRF check since they
// carry no ambient cookie.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<base64-32-bytes>  # CSRF key, generated if empty
//	AUTH_SESSION_LIFETIME=336h             # Session duration
//	AUTH_BCRYPT_COST=12                    # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5              # Failures before a login lockout
//
// # Usage
//
//	authService := auth.NewService(userRepo, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager)
//	router.Use(sessionManager.SessionLoadSave(), authMiddleware.Handler())
//
// Handlers read the caller with CurrentIdentity(c), which is the anonymous
// identity when nobody is logged in.
package auth
