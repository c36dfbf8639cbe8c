package entrypoint

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mrlokans/ebooklib/internal/audit"
	"github.com/mrlokans/ebooklib/internal/auth"
	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/database"
	"github.com/mrlokans/ebooklib/internal/database/activity"
	auditrepo "github.com/mrlokans/ebooklib/internal/database/audit"
	"github.com/mrlokans/ebooklib/internal/database/ebooks"
	"github.com/mrlokans/ebooklib/internal/database/favourites"
	"github.com/mrlokans/ebooklib/internal/database/reviews"
	"github.com/mrlokans/ebooklib/internal/database/stats"
	"github.com/mrlokans/ebooklib/internal/database/users"
	http_controllers "github.com/mrlokans/ebooklib/internal/http"
	"github.com/mrlokans/ebooklib/internal/library"
	"github.com/mrlokans/ebooklib/internal/logging"
	"github.com/mrlokans/ebooklib/internal/metrics"
	"github.com/mrlokans/ebooklib/internal/scheduler"
	"github.com/mrlokans/ebooklib/internal/storage"
	"github.com/mrlokans/ebooklib/internal/storage/providers/local"
	"github.com/mrlokans/ebooklib/internal/storage/providers/s3"
	"github.com/mrlokans/ebooklib/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// after onShutdown has stopped background work.
func Serve(handler http.Handler, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Infof("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger().Fatalf("listen: %s", err)
		}
	}()

	// kill -2 is SIGINT, plain kill is SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Infof("Shutting down server, waiting %v before killing", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so no task touches a closing server
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logging.WithError(err).Error("Server shutdown failed")
	}

	logging.Info("Server exiting")
}

// siblingPath derives a companion database path,
// e.g. ./ebooklib.db + "sessions" -> ./ebooklib-sessions.db.
func siblingPath(mainPath, suffix string) string {
	dir := filepath.Dir(mainPath)
	base := filepath.Base(mainPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	if ext == "" {
		ext = ".db"
	}
	return filepath.Join(dir, name+"-"+suffix+ext)
}

// csrfKey derives the 32-byte CSRF authentication key from the signing secret.
func csrfKey(secret string) []byte {
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return sum[:]
}

// newStorage builds the configured file store provider.
func newStorage(cfg config.Storage) (storage.Client, error) {
	switch cfg.Provider {
	case config.StorageProviderS3:
		return s3.NewClient(cfg)
	case config.StorageProviderLocal, "":
		return local.NewClient(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
	}
}

func Run(cfg *config.Config, version string) {
	logging.Init("ebooklib", cfg.Log.Level, cfg.Log.Format)
	log := logging.Logger()
	log.Infof("Starting ebooklib v%s", version)

	if cfg.Activity.CleanupSchedule != "" {
		if err := scheduler.ValidateSchedule(cfg.Activity.CleanupSchedule); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()

	store, err := newStorage(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}
	log.WithField("provider", cfg.Storage.Provider).Info("File storage initialized")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	ebooksRepo := ebooks.NewRepository(db.DB)
	activityRepo := activity.NewRepository(db.DB)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	defer auditService.Wait()

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var remover library.FileRemover
	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.WithError(err).Error("Error closing task client")
			}
		}()
		if m != nil {
			taskClient.SetRecorder(m)
		}

		taskClient.Register(
			tasks.NewRemoveFilesQueue(store),
			tasks.NewCleanupActivityQueue(activityRepo, auditService),
			tasks.NewPurgeAuditQueue(auditService, auditService),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		remover = tasks.NewQueueRemover(taskClient)

		maintenance = scheduler.NewMaintenanceScheduler(taskClient, cfg.Activity)
		if err := maintenance.Start(taskCtx); err != nil {
			log.Fatalf("Failed to start maintenance scheduler: %v", err)
		}
	} else {
		log.Warn("Task queue disabled: files are removed inline and no cleanup is scheduled")
	}

	lib := library.NewService(ebooksRepo, store, remover)

	// Authentication
	secret := cfg.Auth.SecretKey
	if secret == "" {
		secret, err = auth.GenerateSecret()
		if err != nil {
			log.Fatalf("Failed to generate auth secret: %v", err)
		}
		log.Warn("Generated auth secret; tokens and sessions will not survive a restart (set AUTH_SECRET_KEY to persist)")
	}
	tokens := auth.NewTokenIssuer([]byte(secret), cfg.Auth.TokenExpiry)
	authService := auth.NewService(users.NewRepository(db.DB), tokens, cfg.Auth)

	sessionDB, err := auth.OpenSessionDB(siblingPath(cfg.Database.Path, "sessions"))
	if err != nil {
		log.Fatalf("Failed to open session database: %v", err)
	}
	defer sessionDB.Close()
	sessionManager, err := auth.NewSessionManager(sessionDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	// Avoid storing a typed nil in the interface
	var recorder auth.Recorder
	if m != nil {
		recorder = m
	}
	authController := auth.NewAuthController(authService, sessionManager, cfg.Auth, auditService, recorder)
	defer authController.Stop()

	routerCfg := http_controllers.RouterConfig{
		Version:        version,
		Database:       db,
		Files:          store,
		Ebooks:         ebooksRepo,
		Library:        lib,
		Activity:       activityRepo,
		Favourites:     favourites.NewRepository(db.DB),
		Reviews:        reviews.NewRepository(db.DB),
		Stats:          stats.NewRepository(db.DB),
		CatalogAuditor: auditService,
		AuditReader:    auditService,
		AuthController: authController,
		AuthMiddleware: auth.NewMiddleware(authService, sessionManager),
		SessionManager: sessionManager,
		CSRF: &auth.CSRFConfig{
			Secret:         csrfKey(secret),
			Secure:         cfg.Auth.SecureCookies,
			TrustedOrigins: cfg.CORS.AllowedOrigins,
			ExemptPaths:    []string{"/auth/login", "/auth/register"},
		},
		SecureCookies:  cfg.Auth.SecureCookies,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		Metrics:        m,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes(),
	}
	if maintenance != nil {
		routerCfg.Maintenance = maintenance
	}

	router := http_controllers.NewRouter(routerCfg)
	defer router.Stop()

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
