package source

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
)

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func auctionRows() [][]any {
	return [][]any{
		{"Auction Date", "Year", "Month", "Tenor (Years)", "Weighted Avg Yield (%)"},
		{"2023-01-10", 2023, 1, 2, 12.5},
		{"2023-01-10", 2023, 1, 5, 14.25},
		{"2023-02-14", 2023, 2, "", 13.1},   // missing tenor
		{"2023-03-14", 2023, 3, 10, "n/a"}, // non-numeric yield
		{"2023-04-11", 2023, 4, 10, 20},
	}
}

func TestParseDropsIncompleteRows(t *testing.T) {
	obs, err := Parse(bytes.NewReader(workbook(t, auctionRows())))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d: %+v", len(obs), obs)
	}
	if obs[1].Year != 2023 || obs[1].Month != 1 || obs[1].Tenor != 5 || obs[1].Yield != 14.25 {
		t.Fatalf("unexpected observation: %+v", obs[1])
	}
	if obs[2].Tenor != 10 || obs[2].Yield != 20 {
		t.Fatalf("unexpected observation: %+v", obs[2])
	}
}

func TestParseMissingColumn(t *testing.T) {
	data := workbook(t, [][]any{{"Year", "Month", "Yield"}, {2023, 1, 10}})
	_, err := Parse(bytes.NewReader(data))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(strings.NewReader("not a workbook")); err == nil {
		t.Fatal("expected error for non-xlsx input")
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yields.xlsx")
	if err := os.WriteFile(path, workbook(t, auctionRows()), 0o644); err != nil {
		t.Fatal(err)
	}
	obs, err := (&File{Path: path}).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(obs))
	}

	if _, err := (&File{Path: filepath.Join(t.TempDir(), "missing.xlsx")}).Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestURLSource(t *testing.T) {
	data := workbook(t, auctionRows())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/yields.xlsx" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	obs, err := (&URL{URL: srv.URL + "/yields.xlsx"}).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(obs))
	}

	if _, err := (&URL{URL: srv.URL + "/other"}).Load(context.Background()); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestDriveSource(t *testing.T) {
	data := workbook(t, auctionRows())
	var gotAlt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/files/abc123") {
			http.NotFound(w, r)
			return
		}
		gotAlt = r.URL.Query().Get("alt")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	src := &Drive{
		FileID:  "abc123",
		Options: []option.ClientOption{option.WithEndpoint(srv.URL + "/"), option.WithHTTPClient(srv.Client())},
	}
	obs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(obs))
	}
	if gotAlt != "media" {
		t.Fatalf("expected media download, got alt=%q", gotAlt)
	}
}

func TestNew(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"file", Config{Kind: "file", Path: "x.xlsx"}, false},
		{"default kind", Config{Path: "x.xlsx"}, false},
		{"file without path", Config{Kind: "file"}, true},
		{"drive", Config{Kind: "drive", DriveFileID: "id"}, false},
		{"drive without id", Config{Kind: "drive"}, true},
		{"url", Config{Kind: "URL", URL: "http://example.com/a.xlsx"}, false},
		{"url without url", Config{Kind: "url"}, true},
		{"unknown", Config{Kind: "ftp"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("New(%+v) err = %v, wantErr %v", tc.cfg, err, tc.wantErr)
			}
		})
	}
}
