package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hszk-dev/videohub/internal/config"
	"github.com/hszk-dev/videohub/internal/domain/repository"
	"github.com/hszk-dev/videohub/internal/infrastructure/cache"
	"github.com/hszk-dev/videohub/internal/infrastructure/postgres"
	"github.com/hszk-dev/videohub/internal/infrastructure/queue"
	"github.com/hszk-dev/videohub/internal/infrastructure/storage"
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
	upstreamCfg.PageSize = cfg.Upstream.PageSize
	upstreamCfg.PageConcurrency = cfg.Upstream.PageConcurrency
	upstreamCfg.PageStagger = cfg.Upstream.PageStagger
	upstreamCfg.MaxPages = cfg.Upstream.MaxPages

	upstreamClient, err := upstream.NewClient(upstreamCfg, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}

	// Initialize infrastructure clients
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
	}

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO")

	// The worker keeps its own snapshot so backups never depend on the API process.
	store := cache.NewSnapshotStore()
	refresher := usecase.NewRefresher(
		upstreamClient,
		upstream.NewNormalizer(cfg.Upstream.DefaultAssetURL),
		store,
		usecase.RefresherConfig{
			Interval:          cfg.Refresh.Interval,
			FolderConcurrency: cfg.Refresh.FolderConcurrency,
			CycleTimeout:      cfg.Refresh.CycleTimeout,
		},
	)

	backupSvc := usecase.NewBackupService(store, logRepo, userRepo, storageClient, usecase.BackupServiceConfig{
		LogLimit:   cfg.Backup.LogLimit,
		Prefix:     cfg.Backup.Prefix,
		Retention:  cfg.Backup.Retention,
		MaxRetries: cfg.Worker.MaxRetries,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track background loops and in-flight tasks
	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(2)
	go func() {
		defer wg.Done()
		refresher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		runScheduledBackups(ctx, logger, store.Ready(), backupSvc, cfg.Backup.Interval)
	}()

	if cfg.RabbitMQ.Enabled {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		logger.Info("connected to RabbitMQ")

		go func() {
			logger.Info("consuming backup tasks")
			err := queueClient.ConsumeBackupTasks(ctx, func(task repository.BackupTask) error {
				wg.Add(1)
				defer wg.Done()

				logger.Info("processing backup task",
					slog.String("task_id", task.TaskID.String()),
					slog.Int("retry_count", task.RetryCount),
				)

				if err := backupSvc.ProcessTask(ctx, task); err != nil {
					logger.Error("backup task failed",
						slog.String("task_id", task.TaskID.String()),
						slog.Int("retry_count", task.RetryCount),
						slog.String("error", err.Error()),
					)
					return err
				}

				logger.Info("backup task completed", slog.String("task_id", task.TaskID.String()))
				return nil
			})
			if err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("consumer error: %w", err)
			}
		}()
	} else {
		logger.Warn("RabbitMQ disabled, only scheduled backups will run")
	}

	// Wait for shutdown signal or error
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight work completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some backups may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}

// runScheduledBackups stores a backup once the first snapshot is ready and
// then once per interval.
func runScheduledBackups(
	ctx context.Context,
	logger *slog.Logger,
	ready <-chan struct{},
	svc usecase.BackupService,
	interval time.Duration,
) {
	select {
	case <-ready:
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stored, err := svc.RunScheduled(ctx)
		if err != nil {
			logger.Error("scheduled backup failed", slog.String("error", err.Error()))
		} else {
			logger.Info("scheduled backup stored",
				slog.String("key", stored.Key),
				slog.Int("size_bytes", stored.SizeBytes),
				slog.Bool("verified", stored.Verified),
				slog.Int("deleted", stored.Deleted),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
