// Package auth provides account registration, login sessions and
// role checks for the checkout desk API.
//
// Accounts live in the circulation store next to books and loans, so
// the same backend (sqlite, postgres, JSON document or memory) serves
// both. Passwords are bcrypt hashed and must be at least eight
// characters with one upper-case letter.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # CSRF signing key, generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_CSRF_ENABLED=false             # Require X-CSRF-Token on unsafe methods
//	AUTH_MAX_LOGIN_ATTEMPTS=5           # Failed logins before lockout
//
// # Usage
//
//	service := auth.NewService(store, cfg.Auth)
//	sessions := auth.NewSessionManager(sessionStore, cfg.Auth)
//	mw := auth.NewMiddleware(service, sessions)
//	router.Use(sessions.SessionLoadSave(), mw.Handler())
//
// Handlers read the caller with auth.GetActor(c) and pass it to the
// circulation engine, which makes the authorization decision.
package auth
