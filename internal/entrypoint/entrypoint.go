package entrypoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/goodreads/internal/audit"
	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/database"
	auditrepo "github.com/mrlokans/goodreads/internal/database/audit"
	"github.com/mrlokans/goodreads/internal/database/books"
	"github.com/mrlokans/goodreads/internal/database/reviews"
	"github.com/mrlokans/goodreads/internal/database/users"
	http_controllers "github.com/mrlokans/goodreads/internal/http"
	"github.com/mrlokans/goodreads/internal/media"
	"github.com/mrlokans/goodreads/internal/notify"
	"github.com/mrlokans/goodreads/internal/scheduler"
	"github.com/mrlokans/goodreads/internal/services"
	"github.com/mrlokans/goodreads/internal/tasks"
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

	// kill (no param) sends SIGTERM, Ctrl+C sends SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before draining the background queues
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// csrfKey derives the 32-byte CSRF key from the configured session secret,
// or generates one for this process when none is set.
func csrfKey(secret string) ([]byte, error) {
	if secret == "" {
		generated, err := auth.GenerateSessionSecret()
		if err != nil {
			return nil, err
		}
		log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
		return hex.DecodeString(generated)
	}
	if key, err := hex.DecodeString(secret); err == nil && len(key) == 32 {
		return key, nil
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Goodreads v%s", version)

	if !cfg.Auth.SecureCookies {
		log.Printf("WARNING: secure cookies are disabled. Only use this for local development without HTTPS.")
	}

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	sqlDB, err := db.SQLDB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}

	auditor := audit.NewService(auditrepo.NewRepository(db.DB))
	defer auditor.Wait()

	userRepo := users.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	reviewRepo := reviews.NewRepository(db.DB)

	mailer := notify.NewMailer(cfg.Mail)

	// Task queue: welcome emails and maintenance jobs
	var taskClient *tasks.Client
	var mailQueue notify.Queue
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks), tasks.Handlers{
			Mailer:  mailer,
			Auditor: auditor,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		taskClient.Start()
		mailQueue = tasks.NewEmailQueue(taskClient)
	}
	var goroutineQueue *notify.GoroutineQueue
	if mailQueue == nil {
		log.Printf("Task queue disabled, emails are sent from background goroutines")
		goroutineQueue = notify.NewGoroutineQueue(mailer, auditor, cfg.Tasks.TaskTimeout)
		mailQueue = goroutineQueue
	}

	authService := auth.NewService(userRepo, cfg.Auth)
	authService.SetNotifier(notify.NewWelcomeNotifier(mailQueue))
	authService.SetAuditor(auditor)

	sessionManager, err := auth.NewSessionManager(sqlDB, db.Driver(), cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}
	authMiddleware := auth.NewMiddleware(authService, sessionManager)
	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfigFrom(cfg.Auth))
	defer rateLimiter.Stop()

	csrfSecret, err := csrfKey(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}

	if hasUsers, _ := authService.HasUsers(); !hasUsers {
		log.Printf("No users found. Run '%s create-user -staff' to create an administrator account.", os.Args[0])
	}

	store, err := media.NewStore(cfg.Media)
	if err != nil {
		log.Fatalf("Failed to initialize media directory: %v", err)
	}

	// Audit log retention
	var dispatcher scheduler.CleanupDispatcher = scheduler.NewInlineDispatcher(auditor)
	if taskClient != nil {
		dispatcher = scheduler.NewQueueDispatcher(taskClient)
	}
	maintenance := scheduler.NewMaintenanceScheduler(cfg.Maintenance, cfg.Audit, dispatcher)
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	if err := maintenance.Start(schedulerCtx); err != nil {
		log.Printf("WARNING: maintenance scheduler not started: %v", err)
	}

	reviewPolicy := services.AnyAuthenticated
	if cfg.API.EnforceReviewOwnership {
		reviewPolicy = services.OwnerOnly
	}

	routerCfg := http_controllers.RouterConfig{
		Books:           services.NewBookService(bookRepo, auditor),
		Reviews:         services.NewReviewService(reviewRepo, bookRepo, userRepo, auditor),
		Media:           store,
		AuthService:     authService,
		SessionManager:  sessionManager,
		AuthMiddleware:  authMiddleware,
		RateLimiter:     rateLimiter,
		LoginAuditor:    auditor,
		CSRFSecret:      csrfSecret,
		SecureCookies:   cfg.Auth.SecureCookies,
		TemplatesPath:   cfg.UI.TemplatesPath,
		StaticPath:      cfg.UI.StaticPath,
		PageSize:        cfg.Pagination.PageSize,
		APIPageSize:     cfg.Pagination.APIPageSize,
		MaxPageSize:     cfg.Pagination.MaxPageSize,
		BaseURL:         cfg.HTTP.BaseURL,
		APIReviewPolicy: reviewPolicy,
		Database:        db,
		Version:         version,
		MetricsEnabled:  cfg.Metrics.Enabled,

		APIWriteThrottle: auth.NewWriteThrottle(cfg.API.WritesPerMinute, cfg.API.WriteBurst),

		Audit:              auditor,
		AuditRetentionDays: cfg.Audit.RetentionDays,
	}
	if taskClient != nil {
		routerCfg.Tasks = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		maintenance.Stop()
		if taskClient != nil {
			taskClient.Shutdown(ctx)
		}
		if goroutineQueue != nil {
			goroutineQueue.Wait()
		}
	}

	Serve(router, cfg, onShutdown)
}
