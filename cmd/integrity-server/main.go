// cmd/integrity-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"avalia-integrity/internal/common/cache"
	"avalia-integrity/internal/common/config"
	"avalia-integrity/internal/common/database"
	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/common/observability"
	"avalia-integrity/internal/correction"
	"avalia-integrity/internal/divergence"
	"avalia-integrity/internal/divergence/checks"
	"avalia-integrity/internal/gradeconfig"
	"avalia-integrity/internal/history"
	"avalia-integrity/internal/learninglevel"
	"avalia-integrity/internal/server"
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
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting integrity server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
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
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis (optional: report-cache invalidation only) ---
	var invalidator cache.Invalidator = cache.NoOpInvalidator{}
	if cfg.Database.Redis.Address != "" {
		var rd *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rd, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rd.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, report cache invalidation disabled", zap.Error(err))
		} else {
			defer rd.Close()
			invalidator = cache.NewInvalidator(rd.GetClient(), cfg.Integrity.CachePrefix, log)
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Wire the engines ---
	resolver := gradeconfig.NewResolver(pg.GetDB(), cfg.Integrity.ConfigTTL(), log)
	classifier := learninglevel.New(resolver)

	env := &checks.Env{
		DB:             pg.GetDB(),
		Configs:        resolver,
		Classifier:     classifier,
		DetailLimit:    cfg.Integrity.DetailLimit,
		Tolerance:      cfg.Integrity.Tolerance,
		StaleImportAge: cfg.Integrity.StaleImportAge(),
	}

	detector := divergence.NewDetector(env, obs, log)
	historyStore := history.NewStore(pg.GetDB(), log)

	engine := correction.NewEngine(correction.Config{
		DB:            pg.GetDB(),
		Configs:       resolver,
		Classifier:    classifier,
		CheckEnv:      env,
		History:       historyStore,
		Cache:         invalidator,
		Observability: obs,
		Logger:        log,
		Tolerance:     cfg.Integrity.Tolerance,
		MessageLimit:  cfg.Integrity.MessageLimit,
	})

	srv := server.New(cfg, log, detector, engine, historyStore, pg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	case sig := <-stop:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("integrity server stopped")
}
