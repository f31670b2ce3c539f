package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/forecast"

	_ "modernc.org/sqlite"
)

// Fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository stores one JSON snapshot document per profile plus the
// forecast log.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, profile string) (core.Snapshot, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE profile = ?`, profile).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, fmt.Errorf("profile %q: %w", profile, ErrNotFound)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// SaveSnapshot upserts the snapshot and keeps the replaced version in
// snapshot_history.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, profile string, snap core.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	now := r.now().UTC().Format(timeLayout)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshot_history (profile, version, data, saved_at)
		SELECT profile, version, data, ? FROM snapshots WHERE profile = ?`,
		now, profile); err != nil {
		return fmt.Errorf("archive snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (profile, version, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			version = excluded.version,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		profile, snap.Version, string(data), now); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved to SQLite",
		"profile", profile,
		"version", snap.Version,
		"bytes", len(data))
	return nil
}

func (r *SQLiteRepository) ListProfiles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT profile FROM snapshots ORDER BY profile`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HistoryVersions lists archived snapshot versions of a profile, newest first.
func (r *SQLiteRepository) HistoryVersions(ctx context.Context, profile string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT version FROM snapshot_history WHERE profile = ? ORDER BY version DESC`, profile)
	if err != nil {
		return nil, fmt.Errorf("list snapshot history: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveForecast(ctx context.Context, profile string, res forecast.Result) (ForecastRecord, error) {
	window, err := json.Marshal(res.Window)
	if err != nil {
		return ForecastRecord{}, fmt.Errorf("encode forecast window: %w", err)
	}

	rec := ForecastRecord{
		ID:        uuid.NewString(),
		Profile:   profile,
		CreatedAt: r.now().UTC(),
		Forecast:  res,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO forecasts (id, profile, forecasted_savings_cents, explanation, source, window_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, profile, res.ForecastedSavings.Cents, res.Explanation, string(res.Source),
		string(window), rec.CreatedAt.Format(timeLayout))
	if err != nil {
		return ForecastRecord{}, fmt.Errorf("save forecast: %w", err)
	}

	slog.InfoContext(ctx, "Forecast saved to SQLite",
		"profile", profile,
		"id", rec.ID,
		"amount_cents", res.ForecastedSavings.Cents,
		"source", res.Source)
	return rec, nil
}

func (r *SQLiteRepository) ListForecasts(ctx context.Context, profile string, limit int) ([]ForecastRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, forecasted_savings_cents, explanation, source, window_json, created_at
		FROM forecasts
		WHERE profile = ?
		ORDER BY created_at DESC, id
		LIMIT ?`, profile, limit)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	defer rows.Close()

	var out []ForecastRecord
	for rows.Next() {
		var (
			rec            ForecastRecord
			cents          int64
			source, window string
			createdAt      string
		)
		if err := rows.Scan(&rec.ID, &cents, &rec.Forecast.Explanation, &source, &window, &createdAt); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		rec.Profile = profile
		rec.Forecast.ForecastedSavings = core.Cents(cents)
		rec.Forecast.Source = forecast.Source(source)
		if err := json.Unmarshal([]byte(window), &rec.Forecast.Window); err != nil {
			return nil, fmt.Errorf("decode forecast window: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse forecast time: %w", err)
		}
		rec.Forecast.GeneratedAt = rec.CreatedAt
		out = append(out, rec)
	}
	return out, rows.Err()
}
