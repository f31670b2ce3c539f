// Package cli holds the start-up sequence shared by cmd/finboard,
// cmd/finboard-worker and cmd/finboardctl, plus the finboardctl commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finboard/internal/amqp"
	"finboard/internal/backend"
	"finboard/internal/config"
	"finboard/internal/forecast"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/sheets"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at level and installs it as the
// slog default.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Runtime is everything a binary needs once configuration is loaded.
type Runtime struct {
	Config *config.Config
	Logger *applog.Logger
	Ledger *services.LedgerService
	// AMQP is nil when no broker is configured.
	AMQP   *amqp.Client

	backend  *backend.BackendResult
	factory  backend.Factory
	settings backend.Config
}

// BootstrapOptions select the optional pieces of a Runtime.
type BootstrapOptions struct {
	// Broker connects to AMQP when a URL is configured. A failed connection
	// is logged and the runtime continues without publishing.
	Broker bool
}

// Bootstrap opens the store, the broker and the forecaster and wires the
// ledger service on top of them.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger, opts BootstrapOptions) (*Runtime, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	settings, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, settings)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		backend:  result,
		factory:  factory,
		settings: settings,
	}

	// The ledger takes an interface; a nil *amqp.Client must stay a nil
	// interface value.
	var publisher services.Publisher
	if opts.Broker && cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without broker",
				applog.FieldError, err)
		} else {
			rt.AMQP = client
			publisher = client
			logger.InfoContext(ctx, "AMQP client initialized",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	var forecaster forecast.Forecaster
	if cfg.ForecastEnabled() {
		forecaster = forecast.NewLLMForecaster(forecast.LLMConfig{
			APIKey:   cfg.ForecastAPIKey,
			Model:    cfg.ForecastModel,
			Endpoint: cfg.ForecastURL,
			Timeout:  cfg.ForecastTimeout,
		})
		logger.InfoContext(ctx, "Model forecaster enabled")
	} else {
		logger.InfoContext(ctx, "Forecast API key not set, using average fallback")
	}

	rt.Ledger = services.NewLedgerService(result.Store, publisher, services.Options{
		Location:   loc,
		Forecaster: forecaster,
		CacheSize:  cfg.CacheSize,
		CacheTTL:   cfg.CacheTTL,
		Logger:     logger,
	})
	return rt, nil
}

// Exporter builds the report exporter for the configured spreadsheet.
func (rt *Runtime) Exporter(ctx context.Context) (sheets.ReportExporter, error) {
	return rt.factory.CreateExporter(ctx, rt.settings)
}

// Ready pings the store when it supports it.
func (rt *Runtime) Ready(ctx context.Context) error {
	if p, ok := rt.backend.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the broker and the store. The ledger owns both once it
// has been created.
func (rt *Runtime) Close() error {
	if rt.Ledger != nil {
		return rt.Ledger.Close()
	}
	if rt.backend != nil && rt.backend.Cleanup != nil {
		return rt.backend.Cleanup()
	}
	return nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			logger.Info("Shutdown signal received")
		}
	}()
	return ctx, stop
}

// Fatal logs err and exits with status 1.
func Fatal(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, applog.FieldError, err)
	os.Exit(1)
}
