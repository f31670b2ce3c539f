package storage

import (
	"context"
	"errors"
	"time"

	"finboard/internal/core"
	"finboard/internal/forecast"
)

// ErrNotFound is returned when a profile has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// DefaultProfile is used when a caller does not name one.
const DefaultProfile = "default"

// ForecastRecord is a stored forecast.
type ForecastRecord struct {
	ID        string          `json:"id"`
	Profile   string          `json:"profile"`
	CreatedAt time.Time       `json:"createdAt"`
	Forecast  forecast.Result `json:"forecast"`
}

// Ports implemented by every storage backend.
type (
	SnapshotStore interface {
		// LoadSnapshot returns ErrNotFound for unknown profiles.
		LoadSnapshot(ctx context.Context, profile string) (core.Snapshot, error)
		// SaveSnapshot replaces the stored snapshot; the last write wins.
		SaveSnapshot(ctx context.Context, profile string, snap core.Snapshot) error
		ListProfiles(ctx context.Context) ([]string, error)
	}

	ForecastStore interface {
		SaveForecast(ctx context.Context, profile string, res forecast.Result) (ForecastRecord, error)
		// ListForecasts returns up to limit records, newest first.
		ListForecasts(ctx context.Context, profile string, limit int) ([]ForecastRecord, error)
	}

	Store interface {
		SnapshotStore
		ForecastStore
		Close() error
	}
)
