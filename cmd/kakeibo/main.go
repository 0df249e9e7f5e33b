package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/amqp"
	"kakeibo/internal/auth"
	"kakeibo/internal/config"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	logger := log.New(log.ComponentApp, log.Config{})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Events are best effort; the tracker runs fine without them.
			logger.Warn("Event publishing disabled", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("Event publishing enabled",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	authSvc := auth.NewService(repo, cfg.SessionTTL, cfg.BcryptCost)
	ledger := services.NewLedgerService(repo, publisher, logger.WithComponent(log.ComponentLedger))
	goals := services.NewGoalsService(repo, publisher, logger.WithComponent(log.ComponentGoals))

	srv := apphttp.NewServer(":"+cfg.Port, authSvc, ledger, goals, logger.WithComponent(log.ComponentHTTP))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", log.FieldOperation, log.OpStartup, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Expired sessions accumulate silently; sweep them on a timer.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.PruneEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := authSvc.PruneExpired(ctx)
				if err != nil {
					logger.Warn("Session prune failed", log.FieldError, err)
				} else if n > 0 {
					logger.Info("Pruned expired sessions", "sessions_removed", n)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
