package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"estimator/internal/core"
)

// fakeSheets is a minimal stand-in for the Sheets REST API.
type fakeSheets struct {
	mu      sync.Mutex
	nextID  int64
	tabs    map[string]int64
	values  map[string][][]interface{}
	cleared []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sid"):
		var sheets []map[string]any
		for title, id := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title, "sheetId": id}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.nextID++
				f.tabs[rq.AddSheet.Properties.Title] = f.nextID
			}
			if rq.DeleteSheet != nil {
				for title, id := range f.tabs {
					if id == rq.DeleteSheet.SheetId {
						delete(f.tabs, title)
					}
				}
			}
		}
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, path)
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		key := path[strings.Index(path, "/values/")+len("/values/"):]
		f.values[key] = vr.Values
		_, _ = w.Write([]byte(`{}`))

	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{tabs: map[string]int64{"Summary": 0}, values: map[string][][]interface{}{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return NewWithService(svc, Config{SpreadsheetID: "sid"}), fake
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sid"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExportLifecycle(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)
	e := core.Estimation{
		ID:   "e1",
		Name: "Website",
		Sections: []core.Section{{Name: "Design", Items: []core.Item{
			{Title: "Mockups", Quantity: 3, Price: 10, Margin: 10},
		}}},
	}

	if err := c.Export(ctx, e); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, ok := fake.tabs["EST-e1"]; !ok {
		t.Fatalf("tab not created, tabs = %v", fake.tabs)
	}
	if len(fake.cleared) != 0 {
		t.Fatalf("a new tab should not be cleared")
	}
	rows := fake.values["'EST-e1'!A1"]
	if len(rows) == 0 {
		t.Fatalf("no rows written, got keys %v", keys(fake.values))
	}
	grand := rows[len(rows)-2]
	if grand[1] != "Grand total" || grand[6] != 33.0 {
		t.Fatalf("grand total row = %v", grand)
	}

	e.Sections[0].Items[0].Quantity = 4
	if err := c.Export(ctx, e); err != nil {
		t.Fatalf("second export: %v", err)
	}
	if len(fake.tabs) != 2 || len(fake.cleared) != 1 {
		t.Fatalf("re-export should reuse the tab: tabs=%v cleared=%v", fake.tabs, fake.cleared)
	}

	if err := c.Remove(ctx, "e1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := fake.tabs["EST-e1"]; ok {
		t.Fatalf("tab should be gone")
	}
	if err := c.Remove(ctx, "e1"); err != nil {
		t.Fatalf("removing a missing tab should be a no-op, got %v", err)
	}
	if _, ok := fake.tabs["Summary"]; !ok {
		t.Fatalf("unrelated tabs must survive")
	}
}

func TestNilServiceFails(t *testing.T) {
	c := &Client{spreadsheetID: "sid"}
	if err := c.Export(context.Background(), core.Estimation{ID: "e1"}); err == nil {
		t.Fatalf("expected error without a service")
	}
}

func TestQuoteTab(t *testing.T) {
	if got := quoteTab("it's"); got != "'it''s'" {
		t.Fatalf("quoteTab = %q", got)
	}
}

func keys(m map[string][][]interface{}) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
