// Package services orchestrates the ledger: it loads a profile snapshot,
// applies actions, persists the result and notifies the worker.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/finance"
	"finboard/internal/forecast"
	applog "finboard/internal/log"
	"finboard/internal/state"
	"finboard/internal/storage"
)

// Publisher announces snapshot changes. *amqp.Client implements it.
type Publisher interface {
	PublishSnapshotChanged(ctx context.Context, profile string, version int64) error
	PublishForecastRequest(ctx context.Context, profile string) error
}

type overviewKey struct {
	profile string
	version int64
	month   core.MonthKey
}

// NetWorthView is the current net worth and its recorded history.
type NetWorthView struct {
	Current core.Money           `json:"current"`
	History core.NetWorthHistory `json:"history"`
}

// Options configures a LedgerService.
type Options struct {
	Location   *time.Location
	Now        func() time.Time
	Forecaster forecast.Forecaster
	CacheSize  int
	CacheTTL   time.Duration
	Logger     *applog.Logger
}

// LedgerService is safe for concurrent use. Writes within one process are
// serialised; writes from several processes follow last-write-wins.
type LedgerService struct {
	store     storage.Store
	publisher Publisher
	reducer   *state.Reducer
	forecasts *forecast.Service
	location  *time.Location
	now       func() time.Time
	overviews *cache.LRU[overviewKey, core.MonthOverview]
	logger    *applog.Logger
	events    *applog.StructuredLogger

	mu sync.Mutex
}

// NewLedgerService wires the service. publisher may be nil.
func NewLedgerService(store storage.Store, publisher Publisher, opts Options) *LedgerService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	logger := opts.Logger.WithComponent(applog.ComponentLedger)

	return &LedgerService{
		store:     store,
		publisher: publisher,
		reducer: state.NewReducer(
			state.WithClock(opts.Now),
			state.WithLocation(opts.Location),
			state.WithLogger(opts.Logger.WithComponent(applog.ComponentState)),
		),
		forecasts: forecast.NewService(opts.Forecaster, opts.Location, opts.Logger),
		location:  opts.Location,
		now:       opts.Now,
		overviews: cache.NewLRU[overviewKey, core.MonthOverview](opts.CacheSize, opts.CacheTTL),
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

// Cache exposes the overview cache for registration with a cache.Manager.
func (s *LedgerService) Cache() cache.Cleaner {
	return s.overviews
}

func (s *LedgerService) Location() *time.Location { return s.location }

// Snapshot returns the stored snapshot, or an empty one for a new profile.
func (s *LedgerService) Snapshot(ctx context.Context, profile string) (core.Snapshot, error) {
	snap, err := s.store.LoadSnapshot(ctx, profile)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Snapshot{}, nil
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// Apply reduces every action in order and saves once. Either all actions
// are applied or none is.
func (s *LedgerService) Apply(ctx context.Context, profile string, actions ...state.Action) (core.Snapshot, error) {
	if len(actions) == 0 {
		return core.Snapshot{}, errors.New("no actions")
	}
	next, _, err := s.applyWith(ctx, profile, func(core.Snapshot) []state.Action { return actions })
	return next, err
}

// applyWith derives the actions from the current snapshot and applies them
// while holding the write lock, so the decision and the commit cannot
// interleave with another writer. No actions means no commit.
func (s *LedgerService) applyWith(ctx context.Context, profile string, build func(core.Snapshot) []state.Action) (core.Snapshot, []state.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.Snapshot(ctx, profile)
	if err != nil {
		return core.Snapshot{}, nil, err
	}

	actions := build(snap)
	if len(actions) == 0 {
		return snap, nil, nil
	}

	next := snap
	for _, a := range actions {
		if next, err = s.reducer.Reduce(next, a); err != nil {
			return core.Snapshot{}, nil, err
		}
	}

	if err := s.commit(ctx, profile, next); err != nil {
		return core.Snapshot{}, nil, err
	}
	for _, a := range actions {
		s.events.LogActionApplied(ctx, profile, string(a.Kind()), next.Version)
	}
	return next, actions, nil
}

// Replace stores snap as the profile's new state, as an import does. The
// version continues from the stored one.
func (s *LedgerService) Replace(ctx context.Context, profile string, snap core.Snapshot) (core.Snapshot, error) {
	if err := snap.Validate(); err != nil {
		return core.Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Snapshot(ctx, profile)
	if err != nil {
		return core.Snapshot{}, err
	}

	next := snap.Clone()
	next.NetWorthHistory = next.NetWorthHistory.Sorted()
	next.Version = current.Version + 1
	if err := s.commit(ctx, profile, next); err != nil {
		return core.Snapshot{}, err
	}
	return next, nil
}

func (s *LedgerService) commit(ctx context.Context, profile string, next core.Snapshot) error {
	if err := s.store.SaveSnapshot(ctx, profile, next); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.overviews.DeleteFunc(func(k overviewKey) bool { return k.profile == profile })

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishSnapshotChanged(ctx, profile, next.Version); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish snapshot change",
			applog.NewFields().WithSnapshot(profile, next.Version).WithError(err).ToSlice()...)
	}
	return nil
}

// Summary returns the dashboard overview for a month.
func (s *LedgerService) Summary(ctx context.Context, profile string, year, month int) (core.MonthOverview, error) {
	p := finance.NewPeriod(year, month, s.location)
	if err := p.Validate(); err != nil {
		return core.MonthOverview{}, err
	}
	snap, err := s.Snapshot(ctx, profile)
	if err != nil {
		return core.MonthOverview{}, err
	}
	key := overviewKey{profile: profile, version: snap.Version, month: p.Key()}
	return s.overviews.GetOrCompute(key, func() core.MonthOverview {
		return finance.Overview(snap, p)
	}), nil
}

// CurrentSummary is Summary for the month containing now.
func (s *LedgerService) CurrentSummary(ctx context.Context, profile string) (core.MonthOverview, error) {
	p := finance.PeriodOf(s.now(), s.location)
	return s.Summary(ctx, profile, p.Year, int(p.Month))
}

func (s *LedgerService) Report(ctx context.Context, profile string, year int) (core.YearReport, error) {
	snap, err := s.Snapshot(ctx, profile)
	if err != nil {
		return core.YearReport{}, err
	}
	return finance.YearlyReport(snap, year, s.location), nil
}

// Window returns the trailing months ending with the current one.
func (s *LedgerService) Window(ctx context.Context, profile string, months int) ([]core.MonthTriple, error) {
	snap, err := s.Snapshot(ctx, profile)
	if err != nil {
		return nil, err
	}
	return finance.BuildWindow(snap, s.now(), months, s.location), nil
}

func (s *LedgerService) NetWorth(ctx context.Context, profile string) (NetWorthView, error) {
	snap, err := s.Snapshot(ctx, profile)
	if err != nil {
		return NetWorthView{}, err
	}
	return NetWorthView{
		Current: finance.NetWorth(snap.Assets, snap.Liabilities),
		History: snap.NetWorthHistory.Sorted(),
	}, nil
}

// Forecast computes a forecast now and stores it.
func (s *LedgerService) Forecast(ctx context.Context, profile string) (storage.ForecastRecord, error) {
	snap, err := s.Snapshot(ctx, profile)
	if err != nil {
		return storage.ForecastRecord{}, err
	}
	res, err := s.forecasts.Forecast(ctx, snap, s.now())
	if err != nil {
		return storage.ForecastRecord{}, err
	}
	rec, err := s.store.SaveForecast(ctx, profile, res)
	if err != nil {
		return storage.ForecastRecord{}, fmt.Errorf("save forecast: %w", err)
	}
	return rec, nil
}

// RequestForecast hands the forecast to the worker when a publisher is
// configured. Without one it computes inline and returns the record.
// The history precondition is checked up front either way.
func (s *LedgerService) RequestForecast(ctx context.Context, profile string) (*storage.ForecastRecord, error) {
	if s.publisher == nil {
		rec, err := s.Forecast(ctx, profile)
		if err != nil {
			return nil, err
		}
		return &rec, nil
	}

	window, err := s.Window(ctx, profile, forecast.WindowSize)
	if err != nil {
		return nil, err
	}
	if err := forecast.CheckHistory(window); err != nil {
		return nil, err
	}
	if err := s.publisher.PublishForecastRequest(ctx, profile); err != nil {
		s.logger.WarnContext(ctx, "Queueing forecast failed, computing inline",
			applog.FieldProfile, profile, applog.FieldError, err)
		rec, err := s.Forecast(ctx, profile)
		if err != nil {
			return nil, err
		}
		return &rec, nil
	}
	return nil, nil
}

func (s *LedgerService) Forecasts(ctx context.Context, profile string, limit int) ([]storage.ForecastRecord, error) {
	return s.store.ListForecasts(ctx, profile, limit)
}

func (s *LedgerService) Profiles(ctx context.Context) ([]string, error) {
	return s.store.ListProfiles(ctx)
}

// Close closes the store and the publisher when it is closable.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
