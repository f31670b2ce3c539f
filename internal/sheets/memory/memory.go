// Package memory keeps exported rows in process. It backs the worker when no
// spreadsheet is configured and doubles as a test double.
package memory

import (
	"context"
	"sort"
	"sync"

	"finboard/internal/core"
	"finboard/internal/sheets"
)

var (
	_ sheets.ReportExporter = (*Exporter)(nil)
	_ sheets.ReportReader   = (*Exporter)(nil)
)

type rowKey struct {
	profile string
	month   core.MonthKey
}

type Exporter struct {
	mu      sync.Mutex
	rows    map[rowKey]sheets.Row
	exports int
}

func New() *Exporter {
	return &Exporter{rows: make(map[rowKey]sheets.Row)}
}

// ExportOverview stores the row, replacing any earlier export of the month.
func (e *Exporter) ExportOverview(_ context.Context, profile string, ov core.MonthOverview) error {
	row := sheets.RowFromOverview(profile, ov)
	if _, _, err := row.Month.Parse(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows[rowKey{profile, row.Month}] = row
	e.exports++
	return nil
}

// ExportedRows returns the rows of year in month order.
func (e *Exporter) ExportedRows(_ context.Context, profile string, year int) ([]sheets.Row, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []sheets.Row
	for k, r := range e.rows {
		y, _, err := k.month.Parse()
		if err != nil || y != year || k.profile != profile {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

// Exports counts successful ExportOverview calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
