// Package google exports estimations to a Google Sheets spreadsheet, one
// tab per estimation.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"estimator/internal/core"
	ports "estimator/internal/sheets"
)

const DefaultTabPrefix = "EST-"

type Config struct {
	SpreadsheetID string
	// CredentialsJSON takes precedence over CredentialsFile. When both are
	// empty GOOGLE_APPLICATION_CREDENTIALS is used.
	CredentialsJSON string
	CredentialsFile string
	TabPrefix       string
	Layout          ports.Layout
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabPrefix     string
	layout        ports.Layout
}

var _ ports.EstimationExporter = (*Client)(nil)

// New creates a client authenticated with service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	prefix := cfg.TabPrefix
	if prefix == "" {
		prefix = DefaultTabPrefix
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		tabPrefix:     prefix,
		layout:        cfg.Layout,
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline JSON credentials")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read credentials file", "path", file, "size", len(b))
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Export rewrites the estimation's tab, creating it on first export.
func (c *Client) Export(ctx context.Context, e core.Estimation) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	title := ports.TabTitle(c.tabPrefix, e.ID)

	_, found, err := c.sheetID(ctx, title)
	if err != nil {
		return err
	}
	if found {
		_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoteTab(title), &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("clear tab %s: %w", title, err)
		}
	} else {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add tab %s: %w", title, err)
		}
	}

	vr := &gsheet.ValueRange{Values: c.layout.BuildRows(e)}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoteTab(title)+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write tab %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Estimation exported to Google Sheets",
		"estimation_id", e.ID,
		"tab", title,
		"rows", len(vr.Values),
		"created", !found)
	return nil
}

// Remove deletes the estimation's tab if it exists.
func (c *Client) Remove(ctx context.Context, estimationID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	title := ports.TabTitle(c.tabPrefix, estimationID)
	id, found, err := c.sheetID(ctx, title)
	if err != nil {
		return err
	}
	if !found {
		slog.DebugContext(ctx, "No tab to remove", "estimation_id", estimationID, "tab", title)
		return nil
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteSheet: &gsheet.DeleteSheetRequest{SheetId: id},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete tab %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Estimation tab removed", "estimation_id", estimationID, "tab", title)
	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

// quoteTab renders a tab title for use in A1 notation.
func quoteTab(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
