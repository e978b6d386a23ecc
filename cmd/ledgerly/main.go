package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerly/internal/amqp"
	"ledgerly/internal/cache"
	"ledgerly/internal/cli"
	apphttp "ledgerly/internal/http"
	"ledgerly/internal/log"
	"ledgerly/internal/services"
	"ledgerly/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("starting ledgerly", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Event publication is optional; without a broker URL entry events
	// are simply not emitted.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to connect to AMQP broker", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP event publication enabled",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP_URL not set, entry events disabled")
	}

	sessions := session.NewSQLStore(repo, cfg.SessionTTL)

	cacheManager := cache.NewManager()
	sessions.RegisterCache(cacheManager)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	sweeper := session.NewSweeper(repo, cfg.SweepInterval, logger)

	authService := services.NewAuthService(repo, sessions, cfg.BcryptCost)
	entryService := services.NewEntryService(repo, publisher)

	server := apphttp.NewServer(
		apphttp.Config{
			Addr:                  ":" + cfg.Port,
			SessionTTL:            cfg.SessionTTL,
			SecureCookie:          cfg.SecureCookie,
			AuthRequestsPerMinute: cfg.AuthRequestsPerMinute,
		},
		logger,
		sessions,
		authService,
		entryService,
		repo,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
