// Package memory is an in-process storage backend. Data does not survive a
// restart; a seed directory can preload a snapshot and categories.
package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/forecast"
	"finboard/internal/storage"
)

type Store struct {
	mu        sync.Mutex
	snapshots map[string]core.Snapshot
	forecasts map[string][]storage.ForecastRecord
	now       func() time.Time
}

func New() *Store {
	return &Store{
		snapshots: make(map[string]core.Snapshot),
		forecasts: make(map[string][]storage.ForecastRecord),
		now:       time.Now,
	}
}

// NewFromFiles seeds the default profile from base/seed_snapshot.json and
// base/seed_categories.txt. Missing files are skipped.
func NewFromFiles(base string) (*Store, error) {
	s := New()

	var snap core.Snapshot
	seeded := false
	if data, err := os.ReadFile(filepath.Join(base, "seed_snapshot.json")); err == nil {
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decode seed snapshot: %w", err)
		}
		if err := snap.Validate(); err != nil {
			return nil, fmt.Errorf("seed snapshot: %w", err)
		}
		seeded = true
	}

	for _, c := range readLines(filepath.Join(base, "seed_categories.txt")) {
		if !snap.HasCategory(c) {
			snap.Categories = append(snap.Categories, c)
			seeded = true
		}
	}

	if seeded {
		s.snapshots[storage.DefaultProfile] = snap
	}
	return s, nil
}

func (s *Store) LoadSnapshot(_ context.Context, profile string) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[profile]
	if !ok {
		return core.Snapshot{}, fmt.Errorf("profile %q: %w", profile, storage.ErrNotFound)
	}
	return snap.Clone(), nil
}

func (s *Store) SaveSnapshot(_ context.Context, profile string, snap core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[profile] = snap.Clone()
	return nil
}

func (s *Store) ListProfiles(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.snapshots))
	for p := range s.snapshots {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SaveForecast(_ context.Context, profile string, res forecast.Result) (storage.ForecastRecord, error) {
	rec := storage.ForecastRecord{
		ID:        uuid.NewString(),
		Profile:   profile,
		CreatedAt: s.now().UTC(),
		Forecast:  res,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts[profile] = append(s.forecasts[profile], rec)
	return rec, nil
}

// ListForecasts returns newest first.
func (s *Store) ListForecasts(_ context.Context, profile string, limit int) ([]storage.ForecastRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.forecasts[profile]
	out := make([]storage.ForecastRecord, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
