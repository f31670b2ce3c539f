package main

import (
	"context"
	"errors"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"finboard/internal/cache"
	"finboard/internal/cli"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info"), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)
	logger.Info("Starting finboard-worker")

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

	exporter, err := rt.Exporter(ctx)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize report exporter", err)
	}

	reports := worker.NewReportWorker(rt.Ledger, exporter, cfg.WorkerConcurrency, logger)
	recurring := services.NewRecurringProcessor(rt.Ledger)

	// The periodic pass creates due recurring entries and re-exports every
	// profile in case snapshot.changed messages were lost.
	scheduler := services.NewScheduler(services.SchedulerConfig{
		Interval:   cfg.ExportInterval,
		RunOnStart: true,
	}, logger,
		services.Job{Name: "recurring", Run: func(ctx context.Context) error {
			_, err := recurring.ProcessAll(ctx)
			return err
		}},
		services.Job{Name: "export", Run: reports.ExportAll},
	)

	caches := cache.NewManager(logger)
	caches.Register(rt.Ledger.Cache())

	g, gctx := errgroup.WithContext(ctx)
	if rt.AMQP != nil {
		g.Go(func() error {
			err := rt.AMQP.Consume(gctx, reports.HandleMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on the periodic export")
	}
	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return scheduler.Stop(stopCtx)
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		return
	}
	stats := reports.Stats()
	logger.Info("Worker shutdown complete",
		"exported", stats.Exported,
		"failed", stats.Failed,
		"forecasts", stats.Forecasts)
}
