package http

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// Router is the configured gin engine plus the resources it owns.
type Router struct {
	*gin.Engine
	authController *auth.AuthController
}

// Close releases background resources held by the handlers.
func (r *Router) Close() {
	if r.authController != nil {
		r.authController.Stop()
	}
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *Router {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(corsMiddleware(cfg.CORSAllowedOrigins))
	}

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before the session so the session context survives
	// CSRF's request replacement.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}
	router.Use(cfg.SessionManager.SessionLoadSave())

	authMiddleware := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager)
	router.Use(authMiddleware.Handler())

	if cfg.DemoMiddleware.IsEnabled() {
		log.Printf("Demo mode: write operations are disabled")
		router.Use(cfg.DemoMiddleware.Handler())
	}

	health := NewHealthController(cfg.Pinger, cfg.Backend, cfg.Version)
	books := NewBooksController(cfg.Engine, cfg.Auditor)
	requests := NewRequestsController(cfg.Engine, cfg.Auditor)
	loans := NewLoansController(cfg.Engine)
	reports := NewReportsController(cfg.Engine)
	settings := NewSettingsController(cfg.Engine, cfg.Auditor)
	demoStatus := NewDemoController(cfg.DemoMiddleware)
	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthAuditor, cfg.AuthConfig)

	librarianOnly := authMiddleware.RequireRole(entities.UserRoleLibrarian)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api")

	authController.RegisterRoutes(api.Group("/auth"), authMiddleware)

	// Catalog
	api.GET("/books", books.GetAllBooks)
	api.GET("/books/:id", books.GetBook)
	api.POST("/books", books.AddBook)

	// Request workflow. The engine enforces session and role rules.
	api.POST("/requests/checkout", requests.SubmitCheckout)
	api.POST("/requests/return", requests.SubmitReturn)
	api.GET("/requests/mine", requests.Mine)
	api.GET("/requests/pending", requests.Pending)
	api.POST("/requests/:id/checkout-decision", requests.DecideCheckout)
	api.POST("/requests/:id/return-decision", requests.DecideReturn)
	api.POST("/requests/:id/deny", requests.Deny)

	// Borrower views
	api.GET("/loans/mine", loans.MyCheckouts)
	api.GET("/fines/mine", loans.MyFines)

	// Librarian reports and settings
	api.GET("/stats", reports.Stats)
	api.GET("/analytics", reports.Analytics)
	api.GET("/settings", settings.ListSettings)
	api.GET("/settings/loan-period", librarianOnly, settings.GetLoanPeriod)
	api.PUT("/settings/loan-period", settings.UpdateLoanPeriod)

	if cfg.AuditReader != nil {
		auditController := NewAuditController(cfg.AuditReader)
		api.GET("/audit", librarianOnly, auditController.GetAuditEvents)
	}

	if cfg.TaskClient != nil || cfg.OverdueSweeper != nil {
		tasksController := NewTasksController(cfg.TaskClient, cfg.OverdueSweeper, cfg.AuditRetentionDays)
		api.GET("/tasks/types", librarianOnly, tasksController.ListTaskTypes)
		api.GET("/tasks/:id", librarianOnly, tasksController.GetTaskStatus)
		api.POST("/tasks/:type/run", librarianOnly, tasksController.RunTask)
	}

	api.GET("/demo/status", demoStatus.GetStatus)

	return &Router{Engine: router, authController: authController}
}
