package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FranksOps/rankr/internal/config"
)

const serpPage = `<html><body>
<div class="yp1CPe wDYxhc NFQFxe viOShc LKPcQc"><div class="di3YZe">list</div></div>
<div class="g"><a href="https://golang.org/doc"><h3>Documentation</h3></a></div>
<div class="g"><a href="https://shop.example.com/go"><h3>Shop</h3></a></div>
<div class="g"><a href="https://go.dev/tour"><h3>Tour</h3></a></div>
</body></html>`

func newSERPServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(serpPage))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	return rows
}

func TestSearchCommand(t *testing.T) {
	ts := newSERPServer(t)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "results.csv")
	htmlDir := filepath.Join(dir, "saved_serp_html")
	zipPath := filepath.Join(dir, "serp.zip")
	dbPath := filepath.Join(dir, "rankr.db")

	out, err := execute(t, "search",
		"--base-url", ts.URL,
		"--fingerprint", "go",
		"--delay", "0",
		"--output", outPath,
		"--save-html", "--html-dir", htmlDir,
		"--zip", "--zip-path", zipPath,
		"--store", "sqlite", "--dsn", dbPath,
		"--report", "text",
		"--log-level", "error",
		"--queries", "golang, ",
		"go tour",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}

	for _, want := range []string{"Searching for: golang", "Searching for: go tour", "Search completed!", "Rankr Run Summary"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	rows := readCSV(t, outPath)
	if len(rows) != 7 {
		t.Fatalf("expected header plus 6 rows, got %d", len(rows))
	}
	if rows[1][0] != "golang" || rows[1][1] != "1" || rows[1][5] != "List type featured snippet" {
		t.Errorf("unexpected first row %v", rows[1])
	}
	if !strings.HasSuffix(rows[1][6], "golang_SERP.html") {
		t.Errorf("expected saved path, got %q", rows[1][6])
	}
	if _, err := os.Stat(filepath.Join(htmlDir, "go_tour_SERP.html")); err != nil {
		t.Errorf("expected saved page: %v", err)
	}
	if _, err := os.Stat(zipPath); err != nil {
		t.Errorf("expected zip: %v", err)
	}

	hist, err := execute(t, "history", "--store", "sqlite", "--dsn", dbPath, "--query", "go tour")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if strings.Count(hist, "go tour") != 3 {
		t.Errorf("expected 3 history rows:\n%s", hist)
	}
}

func TestTrackCommand(t *testing.T) {
	ts := newSERPServer(t)
	outPath := filepath.Join(t.TempDir(), "track.csv")

	out, err := execute(t, "track",
		"--base-url", ts.URL,
		"--fingerprint", "go",
		"--delay", "0",
		"--domain", "shop.example.com",
		"--output", outPath,
		"--report", "none",
		"--log-level", "error",
		"golang",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}

	rows := readCSV(t, outPath)
	if len(rows) != 2 {
		t.Fatalf("expected only the matching row, got %v", rows)
	}
	if rows[1][1] != "2" || rows[1][2] != "Yes" {
		t.Errorf("unexpected tracked row %v", rows[1])
	}
}

func TestTrackCommand_RequiresDomain(t *testing.T) {
	_, err := execute(t, "track", "--log-level", "error", "golang")
	if err == nil || !strings.Contains(err.Error(), "domain") {
		t.Fatalf("expected domain validation error, got %v", err)
	}
}

func TestSearchCommand_RequiresQueries(t *testing.T) {
	_, err := execute(t, "search", "--log-level", "error", "--queries", " , ")
	if err == nil || !strings.Contains(err.Error(), "queries") {
		t.Fatalf("expected queries validation error, got %v", err)
	}
}

func TestArchiveCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a_SERP.html"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "out.zip")

	out, err := execute(t, "archive", "--dir", dir, "--out", dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Packaged 1 SERP HTML files") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestGatherQueries(t *testing.T) {
	file := filepath.Join(t.TempDir(), "queries.txt")
	if err := os.WriteFile(file, []byte("from file\n# comment\nsecond\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := gatherQueries([]string{"cfg"}, "a, b", file, []string{"arg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"cfg", "a", " b", "from file", "second", "arg"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %q, got %q", want, got)
	}

	if _, err := gatherQueries(nil, "", filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOutputPath(t *testing.T) {
	c := config.Default().Output
	if got := outputPath(c); got != "search_results.csv" {
		t.Errorf("unexpected default path %s", got)
	}
	c.Format = config.FormatXLSX
	if got := outputPath(c); got != "search_results.xlsx" {
		t.Errorf("expected extension swap, got %s", got)
	}
	c.Path = "custom.out"
	if got := outputPath(c); got != "custom.out" {
		t.Errorf("explicit path must be kept, got %s", got)
	}
}
