package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"org-lifecycle/internal/auth"
	"org-lifecycle/internal/authz"
	"org-lifecycle/internal/config"
	"org-lifecycle/internal/database"
	"org-lifecycle/internal/event"
	"org-lifecycle/internal/handler"
	"org-lifecycle/internal/metrics"
	"org-lifecycle/internal/middleware"
	"org-lifecycle/internal/repository"
	"org-lifecycle/internal/router"
	"org-lifecycle/internal/service"
)

type App struct {
	server       *http.Server
	logger       *slog.Logger
	cleanupFuncs []func()
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()

	logger.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	logger.Info("database ready")

	mode, err := authz.ParseMode(cfg.AuthzMode)
	if err != nil {
		db.Close()
		return nil, err
	}
	authorizer, err := authz.New(cfg.AuthzPolicyFile, mode, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize authorizer: %w", err)
	}

	cleanupFuncs := []func(){db.Close}

	bus := event.NewBus(logger)
	publishers := event.Fanout{bus}
	if cfg.RedisURL != "" {
		client, err := event.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		publishers = append(publishers, event.NewStreamPublisher(client, cfg.EventStream, logger))
		cleanupFuncs = append(cleanupFuncs, func() { _ = client.Close() })
		logger.Info("publishing events to redis stream", "stream", cfg.EventStream)
	}

	var recorder metrics.Recorder = metrics.Nop{}
	var gatherer prometheus.Gatherer
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheus(registry)
		gatherer = registry
	}

	deps := service.WorkflowDeps{
		Authorizer: authorizer,
		Publisher:  publishers,
		Metrics:    recorder,
		Logger:     logger,
	}

	pool := db.Pool
	organizations := repository.NewOrganizationRepository(pool)
	transferService := service.NewTransferService(repository.NewTransferRepository(pool), organizations, deps)
	deleteService := service.NewDeleteService(repository.NewDeleteRequestRepository(pool), organizations, deps)
	cleanupService := service.NewCleanupService(repository.NewCleanupRepository(pool), cfg.CleanupRetention, deps)

	authMiddleware := middleware.NewAuthMiddleware(auth.NewVerifier(cfg.JWTSecret))

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Transfer:      handler.NewTransferHandler(transferService),
		DeleteRequest: handler.NewDeleteRequestHandler(deleteService),
		Cleanup:       handler.NewCleanupHandler(cleanupService),
		Docs:          handler.NewDocsHandler(),
	}, db.Health, gatherer)

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	go cleanupService.StartTicker(backgroundCtx, cfg.CleanupInterval, cfg.CleanupRunOnStart)
	logger.Info("archive cleanup scheduled", "interval", cfg.CleanupInterval, "retention", cleanupService.Retention())
	go logEvents(backgroundCtx, bus, logger)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	// Background work stops before the pool and redis client close.
	cleanupFuncs = append([]func(){backgroundCancel}, cleanupFuncs...)

	return &App{
		server:       server,
		logger:       logger,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

// logEvents records every lifecycle event in the application log.
func logEvents(ctx context.Context, bus event.Bus, logger *slog.Logger) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			logger.Info("lifecycle event", "type", e.Type, "subject_id", e.Subject, "actor_id", e.ActorID, "event_id", e.ID)
		}
	}
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			a.logger.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	a.logger.Info("server stopped")
	return nil
}
