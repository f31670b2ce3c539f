package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
	"finboard/internal/forecast"
	"finboard/internal/services"
	"finboard/internal/sheets"
	sheetmem "finboard/internal/sheets/memory"
	"finboard/internal/storage/memory"
)

var now = time.Date(2025, time.April, 15, 9, 0, 0, 0, time.UTC)

type harness struct {
	ledger   *services.LedgerService
	exporter *sheetmem.Exporter
	opened   int
	closed   int
}

func newHarness() *harness {
	return &harness{
		ledger:   services.NewLedgerService(memory.New(), nil, services.Options{Now: func() time.Time { return now }}),
		exporter: sheetmem.New(),
	}
}

func (h *harness) open(context.Context) (*Env, error) {
	h.opened++
	return &Env{
		Ledger:   h.ledger,
		Exporter: func(context.Context) (sheets.ReportExporter, error) { return h.exporter, nil },
		Close:    func() error { h.closed++; return nil },
		Now:      func() time.Time { return now },
	}, nil
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(h.open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const seedActions = `[
	{"type":"income.add","payload":{"source":"Salary","expectedAmount":3000,"creditedAmount":3000,"date":"2025-01-01","status":"Credited"}},
	{"type":"income.add","payload":{"source":"Salary","expectedAmount":3000,"creditedAmount":3000,"date":"2025-02-01","status":"Credited"}},
	{"type":"income.add","payload":{"source":"Salary","expectedAmount":3000,"creditedAmount":3000,"date":"2025-03-01","status":"Credited","isRecurring":true}},
	{"type":"expense.add","payload":{"category":"Housing","description":"Rent","amount":1000,"dueDate":"2025-01-03","status":"Paid"}},
	{"type":"expense.add","payload":{"category":"Housing","description":"Rent","amount":1000,"dueDate":"2025-02-03","status":"Paid"}},
	{"type":"expense.add","payload":{"category":"Housing","description":"Rent","amount":1000,"dueDate":"2025-03-03","status":"Paid","isRecurring":true}}
]`

func TestApplyThenSummary(t *testing.T) {
	h := newHarness()

	out, err := h.run(t, "apply", writeFile(t, "actions.json", seedActions), "--profile", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "applied 6 actions")

	out, err = h.run(t, "summary", "-p", "alice", "--year", "2025", "--month", "2")
	require.NoError(t, err)
	var ov core.MonthOverview
	require.NoError(t, json.Unmarshal([]byte(out), &ov))
	assert.Equal(t, core.MonthKey("2025-02"), ov.Rollup.Month)
	assert.Equal(t, core.Units(2000), ov.Rollup.Savings)

	assert.Equal(t, h.opened, h.closed)
}

func TestSummaryRequiresYearAndMonthTogether(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "summary", "--month", "3")
	assert.Error(t, err)
}

func TestImportAndDump(t *testing.T) {
	h := newHarness()
	snapshot := `{"assets":[{"id":"a1","name":"Checking","category":"Cash","value":1200,"lastUpdated":"2025-04-01"}],
		"liabilities":[{"id":"l1","name":"Car loan","category":"Loan","value":200,"lastUpdated":"2025-04-01"}]}`

	out, err := h.run(t, "import", writeFile(t, "snap.json", snapshot))
	require.NoError(t, err)
	assert.Contains(t, out, "version 1")

	out, err = h.run(t, "networth")
	require.NoError(t, err)
	var view services.NetWorthView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, core.Units(1000), view.Current)

	dump := filepath.Join(t.TempDir(), "dump.json")
	_, err = h.run(t, "dump", "--out", dump)
	require.NoError(t, err)
	data, err := os.ReadFile(dump)
	require.NoError(t, err)
	var snap core.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Len(t, snap.Assets, 1)
	assert.Equal(t, int64(1), snap.Version)
}

func TestImportRejectsInvalidSnapshot(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "import", writeFile(t, "bad.json", `{"incomes":[{"id":"x","source":""}]}`))
	assert.Error(t, err)
}

func TestApplyUnknownAction(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "apply", writeFile(t, "a.json", `{"type":"nope","payload":{}}`))
	assert.Error(t, err)
	assert.Zero(t, h.opened, "decoding fails before the ledger is opened")
}

func TestForecastAndRecurring(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "apply", writeFile(t, "actions.json", seedActions))
	require.NoError(t, err)

	_, err = h.run(t, "forecast")
	assert.ErrorIs(t, err, forecast.ErrInsufficientHistory)

	out, err := h.run(t, "recurring")
	require.NoError(t, err)
	assert.Contains(t, out, "created 2 recurring entries")

	out, err = h.run(t, "forecast")
	require.NoError(t, err)
	assert.Contains(t, out, `"forecastedSavings"`)

	out, err = h.run(t, "forecast", "--list", "5")
	require.NoError(t, err)
	assert.Contains(t, out, `"profile": "default"`)
}

func TestExportAll(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "apply", "-p", "alice", writeFile(t, "actions.json", seedActions))
	require.NoError(t, err)
	_, err = h.run(t, "apply", "-p", "bob", writeFile(t, "actions.json", seedActions))
	require.NoError(t, err)

	out, err := h.run(t, "export", "--all", "--concurrency", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2, failed 0")

	rows, err := h.exporter.ExportedRows(context.Background(), "bob", 2025)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, core.MonthKey("2025-04"), rows[0].Month)
}

func TestWindowRejectsZeroMonths(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "window", "--months", "0")
	assert.Error(t, err)
}
