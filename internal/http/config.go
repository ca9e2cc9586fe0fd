package http

import (
	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/config"
	"github.com/mrlokans/checkoutdesk/internal/demo"
	"github.com/mrlokans/checkoutdesk/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Engine  *circulation.Engine
	Backend string // storage driver name, reported by /health
	Pinger  Pinger // nil for backends with nothing to ping

	// Audit trail; AuditReader is nil on backends without audit tables
	Auditor     Auditor
	AuditReader AuditReader

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthAuditor    auth.Auditor
	AuthConfig     config.Auth
	CSRFSecret     []byte // empty disables CSRF protection

	CORSAllowedOrigins []string

	DemoMiddleware *demo.Middleware

	// Task queue client (optional)
	TaskClient         *tasks.Client
	OverdueSweeper     OverdueSweeper
	AuditRetentionDays int

	// Application info
	Version string
}
