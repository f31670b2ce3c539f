package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/sheets"
)

// DefaultSheetBase is the sheet name used when none is configured. The year
// is prefixed automatically, e.g. "2025 Finboard".
const DefaultSheetBase = "Finboard"

var (
	_ sheets.ReportExporter = (*Client)(nil)
	_ sheets.ReportReader   = (*Client)(nil)
)

var errNoService = errors.New("sheets service not initialized")

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetBase          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client exports monthly rollups to one spreadsheet, one sheet per year.
// Rows are keyed by profile and month.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *applog.Logger

	mu    sync.Mutex
	known map[string]bool
}

// NewFromConfig authenticates with the service account and returns a client.
func NewFromConfig(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	creds, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(creds),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetBase, logger), nil
}

// NewWithService wraps an existing service. Tests point it at a fake server.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string, logger *applog.Logger) *Client {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = DefaultSheetBase
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSheets)
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		logger:        logger,
		known:         make(map[string]bool),
	}
}

func credentialsJSON(cfg Config) ([]byte, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportOverview writes the month's row, updating it in place when the
// profile already has one for that month.
func (c *Client) ExportOverview(ctx context.Context, profile string, ov core.MonthOverview) error {
	if c.svc == nil {
		return errNoService
	}
	row := sheets.RowFromOverview(profile, ov)
	year, _, err := row.Month.Parse()
	if err != nil {
		return err
	}
	name := yearPrefixedName(c.sheetBase, year)
	if err := c.ensureSheet(ctx, name); err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A:B", name)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	n := locateRow(resp.Values, profile, row.Month)

	target := fmt.Sprintf("%s!A%d:K%d", name, n, n)
	vr := &gsheet.ValueRange{Values: [][]any{rowValues(row)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", target, err)
	}
	c.logger.DebugContext(ctx, "Exported month",
		applog.FieldProfile, profile,
		applog.FieldMonth, string(row.Month),
		"range", target)
	return nil
}

// ExportedRows reads back the profile's rows for year.
func (c *Client) ExportedRows(ctx context.Context, profile string, year int) ([]sheets.Row, error) {
	if c.svc == nil {
		return nil, errNoService
	}
	rng := fmt.Sprintf("%s!A:K", yearPrefixedName(c.sheetBase, year))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values, profile), nil
}

// ensureSheet creates the year sheet with its header row when missing.
func (c *Client) ensureSheet(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known[name] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			c.known[name] = true
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}

	header := make([]any, len(sheets.Header))
	for i, h := range sheets.Header {
		header[i] = h
	}
	rng := fmt.Sprintf("%s!A1:K1", name)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	c.logger.InfoContext(ctx, "Created export sheet", "sheet", name)
	c.known[name] = true
	return nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// locateRow returns the 1-based row holding profile and month, or the first
// row after the existing data. Row 1 is the header.
func locateRow(values [][]any, profile string, month core.MonthKey) int {
	for i, v := range values {
		cols := toStrings(v)
		if len(cols) < 2 {
			continue
		}
		if cols[0] == profile && cols[1] == string(month) {
			return i + 1
		}
	}
	if len(values) == 0 {
		return 2
	}
	return len(values) + 1
}

func rowValues(r sheets.Row) []any {
	return []any{
		r.Profile,
		string(r.Month),
		r.Income.Float(),
		r.ExpectedIncome.Float(),
		r.Paid.Float(),
		r.Unpaid.Float(),
		r.CreditCard.Float(),
		r.TotalExpenses.Float(),
		r.MasterExpenses.Float(),
		r.Savings.Float(),
		r.NetWorth.Float(),
	}
}

// parseRows skips the header and rows of other profiles. Cells that do not
// parse as amounts read as zero.
func parseRows(values [][]any, profile string) []sheets.Row {
	var out []sheets.Row
	for _, v := range values {
		if len(v) < 2 {
			continue
		}
		cols := toStrings(v)
		if cols[0] != profile {
			continue
		}
		month := core.MonthKey(cols[1])
		if _, _, err := month.Parse(); err != nil {
			continue
		}
		amt := func(i int) core.Money {
			if i >= len(v) {
				return core.Money{}
			}
			m, _ := parseCell(v[i])
			return m
		}
		out = append(out, sheets.Row{
			Profile:        profile,
			Month:          month,
			Income:         amt(2),
			ExpectedIncome: amt(3),
			Paid:           amt(4),
			Unpaid:         amt(5),
			CreditCard:     amt(6),
			TotalExpenses:  amt(7),
			MasterExpenses: amt(8),
			Savings:        amt(9),
			NetWorth:       amt(10),
		})
	}
	return out
}

// parseCell accepts numbers and strings with either decimal separator.
// Negative values are allowed since savings and net worth can be below zero.
func parseCell(v any) (core.Money, bool) {
	switch n := v.(type) {
	case float64:
		m, err := core.MoneyFromDecimal(decimal.NewFromFloat(n))
		return m, err == nil
	case int:
		return core.Units(int64(n)), true
	case int64:
		return core.Units(n), true
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return core.Money{}, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return core.Money{}, false
	}
	m, err := core.MoneyFromDecimal(d)
	return m, err == nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
