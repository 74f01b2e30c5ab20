package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	"bondsim/internal/core"
	"bondsim/internal/report"
)

type fakeSheets struct {
	mu          sync.Mutex
	addedSheets []string
	updates     map[string][][]any
	existing    map[string]bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(r.Body)

	switch {
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		_ = json.Unmarshal(body, &req)
		title := req.Requests[0].AddSheet.Properties.Title
		if f.existing[title] {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"A sheet with the name \"` + title + `\" already exists."}}`))
			return
		}
		f.addedSheets = append(f.addedSheets, title)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case strings.Contains(r.URL.Path, "/values/"):
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.Unmarshal(body, &vr)
		rng := r.URL.Path[strings.Index(r.URL.Path, "/values/")+len("/values/"):]
		f.updates[rng] = vr.Values
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestExporter(t *testing.T, fake *fakeSheets) *Exporter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	e, err := New(context.Background(), "sheet-1",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func doc() report.Document {
	y, r := 10.0, 0.05
	return report.Document{
		RunID: "abcdef12-0000-0000-0000-000000000000",
		Result: core.SimulationResult{Records: []core.MonthlyRecord{
			{Month: 1, Year: 2024, CalendarMonth: 1, PredictedAnnualYield: &y, SemiAnnualRate: &r, NewInvestment: 1000, CumulativeInvestment: 1000},
			{Month: 2, Year: 2024, CalendarMonth: 2, CumulativeInvestment: 1000, MaturedPrincipal: 1000},
		}},
	}
}

func TestExportWritesTab(t *testing.T) {
	fake := &fakeSheets{updates: map[string][][]any{}, existing: map[string]bool{}}
	e := newTestExporter(t, fake)

	ref, err := e.Export(context.Background(), doc())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if ref != "Run abcdef12!A1:I3" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if len(fake.addedSheets) != 1 || fake.addedSheets[0] != "Run abcdef12" {
		t.Fatalf("unexpected sheets %v", fake.addedSheets)
	}
	var rows [][]any
	for _, v := range fake.updates {
		rows = v
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Month" || rows[2][3] != nil {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestExportReusesExistingTab(t *testing.T) {
	fake := &fakeSheets{updates: map[string][][]any{}, existing: map[string]bool{"Run abcdef12": true}}
	e := newTestExporter(t, fake)

	if _, err := e.Export(context.Background(), doc()); err != nil {
		t.Fatalf("export should reuse the tab: %v", err)
	}
	if len(fake.updates) != 1 {
		t.Fatalf("expected values written once, got %d", len(fake.updates))
	}
}

func TestNewFromEnvRequiresSpreadsheet(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := NewFromEnv(context.Background(), ""); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
}

func TestNewFromEnvRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewFromEnv(context.Background(), "sheet-1")
	if err == nil || !strings.Contains(err.Error(), "service account") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestTabTitle(t *testing.T) {
	if got := TabTitle("12345678-aaaa"); got != "Run 12345678" {
		t.Fatalf("TabTitle = %q", got)
	}
}
