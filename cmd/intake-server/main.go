// cmd/intake-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"lead-intake-service/internal/admission"
	"lead-intake-service/internal/common/config"
	"lead-intake-service/internal/common/database"
	"lead-intake-service/internal/common/logger"
	"lead-intake-service/internal/common/observability"
	"lead-intake-service/internal/failure"
	"lead-intake-service/internal/intake"
	"lead-intake-service/internal/notify"
	"lead-intake-service/internal/server"
	"lead-intake-service/internal/storage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting intake server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Admission gate, redis-backed when configured ---
	var gate admission.Admitter
	if cfg.RateLimit.Store == "redis" {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")

		gate = admission.NewRedisGate(rdb.Client, cfg.RateLimit.Limit, cfg.RateLimit.Window())
	} else {
		gate = admission.NewGate(cfg.RateLimit.Limit, cfg.RateLimit.Window(),
			admission.WithMaxIdentities(cfg.RateLimit.MaxIdentities))
	}

	// --- AWS clients ---
	docs, err := storage.NewS3DocumentStore(ctx, cfg.Storage.S3.Bucket, cfg.Storage.S3.Region)
	if err != nil {
		zapLog.Fatal("s3 document store failed", zap.Error(err))
	}

	transport, err := notify.NewSESTransport(ctx, cfg.Notifications.AWSRegion, cfg.Notifications.FromEmail)
	if err != nil {
		zapLog.Fatal("ses transport failed", zap.Error(err))
	}

	var alerter failure.Alerter
	if cfg.Notifications.AlertsTopic != "" {
		snsAlerter, err := notify.NewSNSAlerter(ctx, cfg.Notifications.AWSRegion, cfg.Notifications.AlertsTopic)
		if err != nil {
			zapLog.Fatal("sns alerter failed", zap.Error(err))
		}
		alerter = snsAlerter
	}

	// --- Services ---
	dispatcher := notify.NewDispatcher(transport, log,
		notify.WithRetryPolicy(cfg.Notifications.MaxRetries, cfg.Notifications.BaseDelay(), cfg.Notifications.MaxDelay()))

	leadRepo := storage.NewPostgresLeadRepository(pg.DB)
	failureRepo := storage.NewPostgresFailureRepository(pg.DB)
	reviewerDir := storage.NewPostgresReviewerDirectory(pg.DB)

	failureSvc := failure.NewService(failureRepo, dispatcher, alerter, log)
	intakeSvc := intake.NewService(gate, leadRepo, docs, reviewerDir, dispatcher, failureSvc, log)

	// Seed the open-records gauge and keep it honest on a schedule.
	if count, err := failureSvc.CountOpen(ctx); err != nil {
		zapLog.Warn("initial failure sweep failed", zap.Error(err))
	} else {
		zapLog.Info("failure ledger swept", zap.Int("openRecords", count))
	}

	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Notifications.SweepSchedule, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		count, err := failureSvc.CountOpen(sweepCtx)
		if err != nil {
			zapLog.Warn("scheduled failure sweep failed", zap.Error(err))
			return
		}
		zapLog.Info("failure ledger swept", zap.Int("openRecords", count))
	})
	if err != nil {
		zapLog.Fatal("invalid sweep schedule", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	// --- HTTP Server ---
	srv := server.New(cfg.Server, cfg.RateLimit, intakeSvc, failureSvc, obs, log)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}

	// Let in-flight notification dispatches finish before the process exits.
	intakeSvc.Flush()

	zapLog.Info("Intake server stopped gracefully")
}
