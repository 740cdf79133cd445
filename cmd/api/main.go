package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/videohub/internal/api/handler"
	"github.com/hszk-dev/videohub/internal/api/middleware"
	"github.com/hszk-dev/videohub/internal/config"
	"github.com/hszk-dev/videohub/internal/domain/repository"
	"github.com/hszk-dev/videohub/internal/infrastructure/cache"
	"github.com/hszk-dev/videohub/internal/infrastructure/postgres"
	"github.com/hszk-dev/videohub/internal/infrastructure/queue"
	"github.com/hszk-dev/videohub/internal/upstream"
	"github.com/hszk-dev/videohub/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	upstreamCfg := upstream.DefaultClientConfig(cfg.Upstream.APIToken)
	upstreamCfg.BaseURL = cfg.Upstream.BaseURL
	upstreamCfg.RequestTimeout = cfg.Upstream.RequestTimeout
	upstreamCfg.RealtimeTimeout = cfg.Upstream.RealtimeTimeout
	upstreamCfg.PageSize = cfg.Upstream.PageSize
	upstreamCfg.PageConcurrency = cfg.Upstream.PageConcurrency
	upstreamCfg.PageStagger = cfg.Upstream.PageStagger
	upstreamCfg.MaxPages = cfg.Upstream.MaxPages

	upstreamClient, err := upstream.NewClient(upstreamCfg, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}
	normalizer := upstream.NewNormalizer(cfg.Upstream.DefaultAssetURL)

	// Redis holds realtime stats and playback analytics; the catalog snapshot lives in process memory.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	var (
		logRepo  repository.LogRepository
		userRepo repository.UserRepository
	)
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pgClient.Close()
		logRepo = pgClient.Logs()
		userRepo = pgClient.Users()
		logger.Info("connected to PostgreSQL")
	} else {
		logger.Warn("PostgreSQL disabled, backups will omit logs and users")
	}

	var publisher repository.TaskPublisher
	if cfg.RabbitMQ.Enabled {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		publisher = queueClient
		logger.Info("connected to RabbitMQ")
	} else {
		logger.Warn("RabbitMQ disabled, queued backups are unavailable")
	}

	store := cache.NewSnapshotStore()
	refresher := usecase.NewRefresher(upstreamClient, normalizer, store, usecase.RefresherConfig{
		Interval:          cfg.Refresh.Interval,
		FolderConcurrency: cfg.Refresh.FolderConcurrency,
		CycleTimeout:      cfg.Refresh.CycleTimeout,
	})

	realtimeSvc := usecase.NewRealtimeService(
		upstreamClient,
		cache.NewRedisRealtimeCache(redisClient),
		normalizer,
		usecase.RealtimeServiceConfig{
			FreshTTL: cfg.Realtime.FreshTTL,
			StaleTTL: cfg.Realtime.StaleTTL,
		},
	)
	catalogSvc := usecase.NewCatalogService(store, refresher, realtimeSvc)
	analyticsSvc := usecase.NewAnalyticsService(
		cache.NewRedisAnalyticsStore(redisClient, cfg.Analytics.RecentSessions),
		usecase.AnalyticsServiceConfig{
			SessionTTL:     cfg.Analytics.SessionTTL,
			MaxProgressGap: cfg.Analytics.MaxProgressGap,
		},
	)

	// Stored backups are written by the worker; the API only exports on demand.
	backupSvc := usecase.NewBackupService(store, logRepo, userRepo, nil, usecase.BackupServiceConfig{
		LogLimit:   cfg.Backup.LogLimit,
		Prefix:     cfg.Backup.Prefix,
		Retention:  cfg.Backup.Retention,
		MaxRetries: cfg.Worker.MaxRetries,
	})

	refresherDone := make(chan struct{})
	go func() {
		defer close(refresherDone)
		refresher.Run(ctx)
	}()

	r := setupRouter(logger, routes{
		ready:     handler.NewReadyHandler(store),
		videos:    handler.NewVideoHandler(catalogSvc),
		realtime:  handler.NewRealtimeHandler(realtimeSvc),
		analytics: handler.NewAnalyticsHandler(analyticsSvc, logger),
		admin:     handler.NewAdminHandler(catalogSvc, refresher, logger),
		backups:   handler.NewBackupHandler(backupSvc, publisher, logger),
	}, cfg.Admin.JWTSecret)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	cancel()
	select {
	case <-refresherDone:
	case <-shutdownCtx.Done():
		logger.Warn("refresher did not stop before shutdown timeout")
	}

	logger.Info("server stopped")
	return nil
}

type routes struct {
	ready     *handler.ReadyHandler
	videos    *handler.VideoHandler
	realtime  *handler.RealtimeHandler
	analytics *handler.AnalyticsHandler
	admin     *handler.AdminHandler
	backups   *handler.BackupHandler
}

func setupRouter(logger *slog.Logger, h routes, adminSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Get("/ready", h.ready.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/videos", h.videos.List)
		r.Get("/videos/{id}", h.videos.Get)
		r.Get("/folders", h.videos.Folders)
		r.Get("/realtime", h.realtime.Get)

		r.Route("/analytics", func(r chi.Router) {
			r.Post("/session/start", h.analytics.StartSession)
			r.Post("/session/progress", h.analytics.Progress)
			r.Post("/session/end", h.analytics.EndSession)
			r.Get("/video/{id}", h.analytics.Video)
			r.Get("/video/{id}/heatmap", h.analytics.Heatmap)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(adminSecret, logger))

			r.Get("/overview", h.admin.Overview)
			r.Get("/folders", h.admin.Folders)
			r.Get("/cache", h.admin.Cache)
			r.Post("/refresh", h.admin.Refresh)

			r.Get("/backup/export", h.backups.Export)
			r.Get("/backup/info", h.backups.Info)
			r.Post("/backup/verify", h.backups.Verify)
			r.Post("/backups", h.backups.Enqueue)
		})
	})

	return r
}
