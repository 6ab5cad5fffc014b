package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/mirror"
)

const (
	DefaultTransactionsSheet = "Transacciones"
	DefaultBudgetSheet       = "Presupuesto"
)

// Options configures a Client.
type Options struct {
	SpreadsheetID string
	// TransactionsSheet is a base name; the transaction's year is prefixed
	// ("2025 Transacciones").
	TransactionsSheet string
	// BudgetSheet is a base name; the month key is appended
	// ("Presupuesto 03-2025").
	BudgetSheet string
	Location    *time.Location
	Formatter   core.Formatter
}

// Client mirrors transactions and monthly budget views into a spreadsheet.
type Client struct {
	svc  *gsheet.Service
	opts Options

	mu     sync.Mutex
	titles map[string]struct{}
	// ids caches the transaction IDs already present per sheet, so a retried
	// append does not write the same row twice.
	ids map[string]map[string]struct{}
}

var _ mirror.Sink = (*Client)(nil)

// New builds a Client over the Sheets API. clientOpts are handed to the
// generated service unchanged.
func New(ctx context.Context, opts Options, clientOpts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(opts.TransactionsSheet) == "" {
		opts.TransactionsSheet = DefaultTransactionsSheet
	}
	if strings.TrimSpace(opts.BudgetSheet) == "" {
		opts.BudgetSheet = DefaultBudgetSheet
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Formatter == (core.Formatter{}) {
		opts.Formatter = core.DefaultFormatter()
	}
	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:  svc,
		opts: opts,
		ids:  make(map[string]map[string]struct{}),
	}, nil
}

// NewFromEnv creates a Client using environment variables and a service
// account.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional: GOOGLE_SHEET_NAME (default "Transacciones"),
// GOOGLE_BUDGET_SHEET_NAME (default "Presupuesto").
func NewFromEnv(ctx context.Context, loc *time.Location) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := serviceAccountJSON(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, Options{
		SpreadsheetID:     spreadsheetID,
		TransactionsSheet: os.Getenv("GOOGLE_SHEET_NAME"),
		BudgetSheet:       os.Getenv("GOOGLE_BUDGET_SHEET_NAME"),
		Location:          loc,
	},
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	)
}

// serviceAccountJSON reads credentials from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func serviceAccountJSON(ctx context.Context) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendTransaction adds row to the sheet of the row's year. Rows whose ID
// is already in the sheet are skipped.
func (c *Client) AppendTransaction(ctx context.Context, userID string, row mirror.TransactionRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.opts.TransactionsSheet, row.Date.In(c.opts.Location).Year())

	c.mu.Lock()
	defer c.mu.Unlock()

	created, err := c.ensureSheet(ctx, sheet)
	if err != nil {
		return err
	}
	if created {
		if err := c.update(ctx, a1(sheet, "A1"), [][]any{transactionHeader}); err != nil {
			return err
		}
	}
	ids, err := c.knownIDs(ctx, sheet)
	if err != nil {
		return err
	}
	if _, ok := ids[row.ID]; ok {
		slog.InfoContext(ctx, "Transaction already mirrored", "user_id", userID, "transaction_id", row.ID, "sheet", sheet)
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{transactionValues(row, c.opts.Location)}}
	_, err = c.svc.Spreadsheets.Values.Append(c.opts.SpreadsheetID, a1(sheet, "A:G"), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	ids[row.ID] = struct{}{}
	slog.InfoContext(ctx, "Transaction mirrored", "user_id", userID, "transaction_id", row.ID, "sheet", sheet)
	return nil
}

// WriteBudgetMonth replaces the content of the month's budget sheet.
func (c *Client) WriteBudgetMonth(ctx context.Context, userID string, month core.MonthKey, views []budget.View) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := c.opts.BudgetSheet + " " + month.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}
	_, err := c.svc.Spreadsheets.Values.Clear(c.opts.SpreadsheetID, a1(sheet, "A:H"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}
	if err := c.update(ctx, a1(sheet, "A1"), budgetValues(views, c.opts.Formatter)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget month mirrored", "user_id", userID, "month", month.String(), "rows", len(views), "sheet", sheet)
	return nil
}

func (c *Client) update(ctx context.Context, rng string, values [][]any) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.opts.SpreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// ensureSheet creates the sheet when it does not exist yet and reports
// whether it did. Callers hold c.mu.
func (c *Client) ensureSheet(ctx context.Context, title string) (bool, error) {
	if c.titles == nil {
		ss, err := c.svc.Spreadsheets.Get(c.opts.SpreadsheetID).
			Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return false, fmt.Errorf("read spreadsheet: %w", err)
		}
		c.titles = make(map[string]struct{}, len(ss.Sheets))
		for _, s := range ss.Sheets {
			if s.Properties != nil {
				c.titles[s.Properties.Title] = struct{}{}
			}
		}
	}
	if _, ok := c.titles[title]; ok {
		return false, nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.opts.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("add sheet %s: %w", title, err)
	}
	c.titles[title] = struct{}{}
	c.ids[title] = make(map[string]struct{})
	slog.InfoContext(ctx, "Sheet created", "sheet", title)
	return true, nil
}

// knownIDs loads the ID column of sheet once. Callers hold c.mu.
func (c *Client) knownIDs(ctx context.Context, sheet string) (map[string]struct{}, error) {
	if ids, ok := c.ids[sheet]; ok {
		return ids, nil
	}
	rng := a1(sheet, idColumn+":"+idColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.opts.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := collectIDs(resp.Values)
	c.ids[sheet] = ids
	return ids, nil
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

// a1 quotes sheet for A1 notation.
func a1(sheet, rng string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + rng
}
