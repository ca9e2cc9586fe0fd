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

	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/config"
	"github.com/mrlokans/checkoutdesk/internal/demo"
	http_controllers "github.com/mrlokans/checkoutdesk/internal/http"
	"github.com/mrlokans/checkoutdesk/internal/scheduler"
	"github.com/mrlokans/checkoutdesk/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(handler http.Handler, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before background work is torn down.
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// NewEngine builds the workflow engine with the configured policy.
func NewEngine(store circulation.Store, cfg config.Circulation) *circulation.Engine {
	return circulation.NewEngine(store, circulation.WithPolicy(circulation.Policy{
		LoanPeriodDays: cfg.LoanPeriodDays,
		MaxActiveLoans: cfg.MaxActiveLoans,
		FinePerDay:     cfg.FinePerDay,
	}))
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Checkout Desk v%s", version)

	backend, err := OpenBackend(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}()
	log.Printf("Storage backend: %s", backend.Driver)

	engine := NewEngine(backend.Store, cfg.Circulation)

	if cfg.Demo.SeedData {
		n, err := demo.Seed(context.Background(), backend.Store)
		if err != nil {
			log.Fatalf("Failed to seed demo catalog: %v", err)
		}
		if n > 0 {
			log.Printf("Seeded %d demo books", n)
		}
	}

	var demoMiddleware *demo.Middleware
	if cfg.Demo.Enabled {
		log.Printf("Demo mode enabled - write operations will be blocked")
		demoMiddleware = demo.NewMiddleware(true)
	}

	// Audit consumers get a nil interface, not a nil pointer, when there is no trail.
	var (
		auditor     http_controllers.Auditor
		auditReader http_controllers.AuditReader
		authAuditor auth.Auditor
		recorder    tasks.OverdueNoticeRecorder = logNoticeRecorder{}
		cleaner     tasks.AuditEventCleaner
	)
	if backend.Audit != nil {
		auditor = backend.Audit
		auditReader = backend.Audit
		authAuditor = backend.Audit
		recorder = backend.Audit
		cleaner = backend.Audit
	}

	authService := auth.NewService(backend.Store, cfg.Auth)

	var sessionStore scs.Store
	if backend.SessionDB != nil {
		sessionStore, err = auth.NewSQLiteSessionStore(backend.SessionDB)
		if err != nil {
			log.Fatalf("Failed to initialize session store: %v", err)
		}
	} else {
		log.Printf("Sessions are kept in memory and will not survive a restart")
	}
	sessionManager := auth.NewSessionManager(sessionStore, cfg.Auth)

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		csrfSecret, err = sessionSecret(cfg.Auth.SessionSecret)
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
	}

	if hasAccounts, err := authService.HasAccounts(context.Background()); err == nil && !hasAccounts {
		log.Printf("No accounts found. POST /api/auth/setup or run 'create-librarian' to create the first librarian.")
	}

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(backend.QueuePath(), tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewOverdueNoticeQueue(recorder),
			tasks.NewCleanupAuditEventsQueue(cleaner),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	sweepOpts := []scheduler.Option{
		scheduler.WithSchedule(cfg.OverdueSweep.Schedule),
		scheduler.WithRecorder(recorder),
	}
	if taskClient != nil {
		sweepOpts = append(sweepOpts, scheduler.WithQueue(taskClient))
		if cleaner != nil {
			sweepOpts = append(sweepOpts, scheduler.WithAuditCleanup(cfg.Audit.RetentionDays))
		}
	}
	sweeper := scheduler.NewOverdueSweepScheduler(engine, backend.Store, sweepOpts...)

	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	if cfg.OverdueSweep.Enabled {
		if err := sweeper.Start(schedulerCtx); err != nil {
			log.Fatalf("Failed to start overdue sweep scheduler: %v", err)
		}
	} else {
		log.Printf("Overdue sweep scheduler: disabled")
	}

	routerCfg := http_controllers.RouterConfig{
		Engine:             engine,
		Backend:            backend.Driver,
		Pinger:             backend.Pinger(),
		Auditor:            auditor,
		AuditReader:        auditReader,
		AuthService:        authService,
		SessionManager:     sessionManager,
		AuthAuditor:        authAuditor,
		AuthConfig:         cfg.Auth,
		CSRFSecret:         csrfSecret,
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		DemoMiddleware:     demoMiddleware,
		TaskClient:         taskClient,
		OverdueSweeper:     sweeper,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		Version:            version,
	}
	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		sweeper.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		router.Close()
	}

	Serve(router, cfg, onShutdown)
}

// sessionSecret decodes the configured secret, or generates one when unset.
func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}

// logNoticeRecorder writes overdue notices to the log when there is no
// audit trail to hold them.
type logNoticeRecorder struct{}

func (logNoticeRecorder) LogOverdueNotice(requester string, loanID uint, description string) {
	log.Printf("Overdue notice for %s (loan %d): %s", requester, loanID, description)
}
