// Package forecast turns the trailing months of a snapshot into a savings
// forecast. The prediction itself comes from a Forecaster collaborator; when
// it fails the service answers with the average of the window's savings.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/finance"
	applog "finboard/internal/log"
)

// WindowSize is the number of months a forecast is based on.
const WindowSize = 3

// ErrInsufficientHistory means fewer than WindowSize months carry data. The
// condition clears once more months are recorded, so callers may retry.
var ErrInsufficientHistory = errors.New("not enough history to forecast: need 3 months with income or expenses")

const fallbackExplanation = "Forecast based on your average monthly savings over the last three months."

type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Result is a savings forecast for the month after the window.
type Result struct {
	ForecastedSavings core.Money         `json:"forecastedSavings"`
	Explanation       string             `json:"explanation"`
	Source            Source             `json:"source"`
	Window            []core.MonthTriple `json:"window"`
	GeneratedAt       time.Time          `json:"generatedAt"`
}

// Forecaster predicts next month's savings from exactly WindowSize months,
// oldest first.
type Forecaster interface {
	Forecast(ctx context.Context, window []core.MonthTriple) (Result, error)
}

// Service enforces the history precondition and degrades to the average
// when the forecaster is missing or fails.
type Service struct {
	forecaster Forecaster
	location   *time.Location
	logger     *applog.Logger
}

// NewService creates a Service. A nil forecaster always yields the fallback.
func NewService(f Forecaster, loc *time.Location, logger *applog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Service{
		forecaster: f,
		location:   loc,
		logger:     logger.WithComponent(applog.ComponentForecast),
	}
}

// Forecast builds the window ending at now's month and asks the forecaster.
func (s *Service) Forecast(ctx context.Context, snap core.Snapshot, now time.Time) (Result, error) {
	window := finance.BuildWindow(snap, now, WindowSize, s.location)
	if err := CheckHistory(window); err != nil {
		return Result{}, err
	}

	if s.forecaster == nil {
		return Fallback(window, now), nil
	}

	res, err := s.forecaster.Forecast(ctx, window)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("forecast: %w", ctx.Err())
		}
		s.logger.WarnContext(ctx, "Forecaster failed, using average savings",
			applog.FieldError, err, applog.FieldOperation, applog.OpForecast)
		return Fallback(window, now), nil
	}

	res.Source = SourceModel
	res.Window = window
	if res.GeneratedAt.IsZero() {
		res.GeneratedAt = now
	}
	return res, nil
}

// CheckHistory returns ErrInsufficientHistory unless the window has
// WindowSize months and every one of them carries data.
func CheckHistory(window []core.MonthTriple) error {
	if finance.MonthsWithData(window) < WindowSize {
		return ErrInsufficientHistory
	}
	return nil
}

// Fallback averages the savings of the window, rounding half away from zero.
func Fallback(window []core.MonthTriple, now time.Time) Result {
	res := Result{
		Explanation: fallbackExplanation,
		Source:      SourceFallback,
		Window:      window,
		GeneratedAt: now,
	}
	if len(window) == 0 {
		return res
	}
	total := decimal.Zero
	for _, m := range window {
		total = total.Add(m.Savings().Decimal())
	}
	// The mean of int64 cents always fits.
	res.ForecastedSavings, _ = core.MoneyFromDecimal(total.Div(decimal.NewFromInt(int64(len(window)))))
	return res
}
