package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func validConfig() Config {
	c := Default()
	c.Search.Queries = []string{"golang"}
	return c
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Search.TLD != "google.com" || c.Search.Country != "in" || c.Search.Language != "en" || c.Search.Num != "10" {
		t.Errorf("unexpected search defaults %+v", c.Search)
	}
	if c.Pacing.Backoff != 5*time.Second || c.Pacing.Delay != 18*time.Second || c.Pacing.MaxAttempts != 3 {
		t.Errorf("unexpected pacing defaults %+v", c.Pacing)
	}
	if c.Output.HTMLDir != "saved_serp_html" || c.Output.ZipPath != "serp_html_files.zip" {
		t.Errorf("unexpected output defaults %+v", c.Output)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(ModeSearch); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	c := validConfig()
	c.Search.Queries = []string{" ", ""}
	if err := c.Validate(ModeSearch); err == nil || !strings.Contains(err.Error(), "queries") {
		t.Errorf("expected queries error, got %v", err)
	}

	c = validConfig()
	if err := c.Validate(ModeTrack); err == nil || !strings.Contains(err.Error(), "domain") {
		t.Errorf("expected domain error in track mode, got %v", err)
	}
	c.Search.Domain = "example.com"
	if err := c.Validate(ModeTrack); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	c = validConfig()
	c.Output.Format = "pdf"
	c.Store.Backend = StoreSQLite
	c.Fetch.Fingerprint = "netscape"
	c.Logging.Level = "loud"
	err := c.Validate(ModeSearch)
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"output.format", "store.dsn", "netscape", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestRequest(t *testing.T) {
	c := validConfig()
	c.Search.Domain = " example.com "
	c.Output.SaveHTML = true

	r := c.Request(ModeTrack)
	if !r.StopOnDomainFound || r.TrackDomain != "example.com" || !r.SaveHTML || r.ResultDomain != "google.com" {
		t.Errorf("unexpected track request %+v", r)
	}

	if c.Request(ModeSearch).StopOnDomainFound {
		t.Error("search mode must not stop on match by default")
	}
}

func TestParseQueries(t *testing.T) {
	got := ParseQueries("best shoes, running ,,trail")
	want := []string{"best shoes", " running ", "", "trail"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if ParseQueries("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestNew_EnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rankr.yaml")
	content := `
search:
  country: us
  queries: ["a", "b"]
pacing:
  delay: 2s
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RANKR_STORE_DSN", "rankr.db")
	t.Setenv("RANKR_SEARCH_LANGUAGE", "de")

	v, err := New(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Search.Country != "us" || c.Search.Language != "de" || c.Store.DSN != "rankr.db" {
		t.Errorf("unexpected merged config %+v / %+v", c.Search, c.Store)
	}
	if c.Pacing.Delay != 2*time.Second || c.Pacing.Backoff != 5*time.Second {
		t.Errorf("unexpected pacing %+v", c.Pacing)
	}
	if len(c.Search.Queries) != 2 {
		t.Errorf("expected 2 queries, got %v", c.Search.Queries)
	}
}

func TestNew_MissingFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.Fetch.Timeout != 30*time.Second || c.Output.Format != FormatCSV {
		t.Errorf("unexpected defaults %+v", c)
	}
}
