// Package worker reacts to ledger events: it exports monthly rollups and
// computes queued forecasts.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/forecast"
	applog "finboard/internal/log"
	"finboard/internal/sheets"
	"finboard/internal/storage"
)

// Ledger is the read side the worker needs. *services.LedgerService
// implements it.
type Ledger interface {
	CurrentSummary(ctx context.Context, profile string) (core.MonthOverview, error)
	Forecast(ctx context.Context, profile string) (storage.ForecastRecord, error)
	Profiles(ctx context.Context) ([]string, error)
}

// ReportWorker handles snapshot.changed and forecast.requested messages.
type ReportWorker struct {
	ledger      Ledger
	exporter    sheets.ReportExporter
	concurrency int
	logger      *applog.Logger

	exported  atomic.Int64
	failed    atomic.Int64
	forecasts atomic.Int64
}

func NewReportWorker(ledger Ledger, exporter sheets.ReportExporter, concurrency int, logger *applog.Logger) *ReportWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &ReportWorker{
		ledger:      ledger,
		exporter:    exporter,
		concurrency: concurrency,
		logger:      logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMessage dispatches by message type. It has the amqp.Handler shape.
func (w *ReportWorker) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	switch msg.Type {
	case amqp.TypeSnapshotChanged:
		return w.HandleSnapshotChanged(ctx, msg)
	case amqp.TypeForecastRequested:
		return w.HandleForecastRequested(ctx, msg)
	default:
		// Unknown types are acknowledged and dropped.
		w.logger.WarnContext(ctx, "Ignoring message of unknown type",
			applog.FieldMessageType, string(msg.Type),
			applog.FieldProfile, msg.Profile)
		return nil
	}
}

// HandleSnapshotChanged re-exports the current month of the profile.
func (w *ReportWorker) HandleSnapshotChanged(ctx context.Context, msg *amqp.Message) error {
	w.logger.InfoContext(ctx, "Processing snapshot change",
		applog.NewFields().WithSnapshot(msg.Profile, msg.Version).ToSlice()...)
	return w.ExportProfile(ctx, msg.Profile)
}

// HandleForecastRequested computes and stores a forecast. Missing history
// is not retried: requeueing would fail the same way.
func (w *ReportWorker) HandleForecastRequested(ctx context.Context, msg *amqp.Message) error {
	start := time.Now()
	rec, err := w.ledger.Forecast(ctx, msg.Profile)
	if errors.Is(err, forecast.ErrInsufficientHistory) {
		w.logger.WarnContext(ctx, "Skipping forecast request",
			applog.FieldProfile, msg.Profile,
			applog.FieldError, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("forecast %s: %w", msg.Profile, err)
	}
	w.forecasts.Add(1)
	w.logger.InfoContext(ctx, "Forecast stored",
		applog.FieldProfile, msg.Profile,
		"forecast_id", rec.ID,
		"source", string(rec.Forecast.Source),
		applog.FieldAmountCents, rec.Forecast.ForecastedSavings.Cents,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// ExportProfile exports the current month overview of one profile.
func (w *ReportWorker) ExportProfile(ctx context.Context, profile string) error {
	ov, err := w.ledger.CurrentSummary(ctx, profile)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("summary %s: %w", profile, err)
	}
	if err := w.exporter.ExportOverview(ctx, profile, ov); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("export %s: %w", profile, err)
	}
	w.exported.Add(1)
	w.logger.InfoContext(ctx, "Exported month",
		applog.FieldProfile, profile,
		applog.FieldMonth, string(ov.Rollup.Month),
		applog.FieldAmountCents, ov.Rollup.Savings.Cents)
	return nil
}

// ExportAll exports every profile, at most concurrency at a time. It is the
// backstop for snapshot.changed messages that were lost. One failing profile
// does not stop the others; failures are joined into the returned error.
func (w *ReportWorker) ExportAll(ctx context.Context) error {
	profiles, err := w.ledger.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	if len(profiles) == 0 {
		w.logger.DebugContext(ctx, "No profiles to export")
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, profile := range profiles {
		g.Go(func() error {
			if err := w.ExportProfile(gctx, profile); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Periodic export completed",
		"profiles", len(profiles),
		"errors", len(errs))
	return errors.Join(errs...)
}

// Stats reports counters since start.
type Stats struct {
	Exported  int64
	Failed    int64
	Forecasts int64
}

func (w *ReportWorker) Stats() Stats {
	return Stats{
		Exported:  w.exported.Load(),
		Failed:    w.failed.Load(),
		Forecasts: w.forecasts.Load(),
	}
}
