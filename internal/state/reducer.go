// Package state owns snapshot transitions. Every change is expressed as an
// Action and applied by a Reducer, which returns a new snapshot and leaves
// the previous one untouched.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/finance"
	applog "finboard/internal/log"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownAction = errors.New("unknown action")
)

// Reducer applies actions. The zero value is not usable; use NewReducer.
type Reducer struct {
	now      func() time.Time
	location *time.Location
	newID    func() string
	logger   *applog.Logger
}

// Option customises a Reducer.
type Option func(*Reducer)

// WithClock sets the time source used for net-worth snapshots and default
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reducer) { r.now = now }
}

// WithLocation sets the location calendar months are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(r *Reducer) { r.location = loc }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Reducer) { r.newID = gen }
}

// WithLogger attaches a logger for soft-link warnings.
func WithLogger(l *applog.Logger) Option {
	return func(r *Reducer) { r.logger = l }
}

func NewReducer(opts ...Option) *Reducer {
	r := &Reducer{
		now:      time.Now,
		location: time.UTC,
		newID:    uuid.NewString,
		logger:   applog.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reduce returns the snapshot produced by applying a to s. On error the
// original snapshot is returned unchanged.
func (r *Reducer) Reduce(s core.Snapshot, a Action) (core.Snapshot, error) {
	if a == nil {
		return s, ErrUnknownAction
	}
	now := r.now()
	next := s.Clone()
	e := &env{now: now, newID: r.newID, logger: r.logger}
	if err := a.apply(&next, e); err != nil {
		return s, fmt.Errorf("%s: %w", a.Kind(), err)
	}

	if touchesNetWorth(a) {
		if history, changed := finance.SnapshotNetWorth(next, now, r.location); changed {
			next.NetWorthHistory = history
		}
	}

	next.Version = s.Version + 1
	return next, nil
}

// Reduce applies a with a default reducer pinned to now.
func Reduce(s core.Snapshot, a Action, now time.Time) (core.Snapshot, error) {
	return NewReducer(WithClock(func() time.Time { return now })).Reduce(s, a)
}

type env struct {
	now    time.Time
	newID  func() string
	logger *applog.Logger
}

func (e *env) id(current string) string {
	if current != "" {
		return current
	}
	return e.newID()
}

func (e *env) date(d core.Date) core.Date {
	if d.IsZero() {
		return core.Date{Time: e.now}
	}
	return d
}

func touchesNetWorth(a Action) bool {
	switch a.Kind() {
	case KindAssetUpsert, KindAssetDelete, KindLiabilityUpsert, KindLiabilityDelete:
		return true
	}
	return false
}

func indexByID[T any](items []T, id string, getID func(T) string) int {
	if id == "" {
		return -1
	}
	for i, it := range items {
		if getID(it) == id {
			return i
		}
	}
	return -1
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
