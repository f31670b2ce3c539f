package main

import (
	"context"
	"errors"
	"net/http"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"finboard/internal/cache"
	"finboard/internal/cli"
	apphttp "finboard/internal/http"
	applog "finboard/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info"), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	rt, err := cli.Bootstrap(ctx, cfg, logger, cli.BootstrapOptions{Broker: true})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Failed to close resources", applog.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, rt.Ledger, apphttp.Options{
		RateLimit: cfg.RateLimit,
		Logger:    logger,
		Ready:     rt.Ready,
	})

	caches := cache.NewManager(logger)
	caches.Register(rt.Ledger.Cache())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finboard server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp", rt.AMQP != nil,
			"timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		return
	}
	logger.Info("Server stopped gracefully", "security", srv.SecurityStats())
}
