package scraper

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/rankr/internal/fingerprint"
	"github.com/FranksOps/rankr/pkg/useragent"
	"github.com/andybalholm/brotli"
)

func newTestFetcher(t *testing.T, cfg FetchConfig) *Fetcher {
	t.Helper()
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	f, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFetcher_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "TestBrowser/1.0" {
			t.Errorf("expected injected User-Agent, got %q", got)
		}
		if r.Header.Get("Accept-Language") == "" {
			t.Errorf("expected Accept-Language header")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="g"></div>`))
	}))
	defer ts.Close()

	f := newTestFetcher(t, FetchConfig{
		Timeout:   5 * time.Second,
		UserAgent: useragent.Fixed("TestBrowser/1.0"),
	})

	res, err := f.Fetch(context.Background(), ts.URL+"/search?q=go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("expected no fetch error, got %s", res.Error)
	}
	if !res.OK() || res.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.StatusCode)
	}
	if string(res.Body) != `<div class="g"></div>` {
		t.Errorf("unexpected body %q", res.Body)
	}
	if !strings.HasPrefix(res.ContentType(), "text/html") {
		t.Errorf("unexpected content type %q", res.ContentType())
	}
	if res.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
	if res.Challenged {
		t.Errorf("plain results page must not be flagged as a challenge")
	}
}

func TestFetcher_Throttled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("Our systems have detected unusual traffic from your computer network."))
	}))
	defer ts.Close()

	f := newTestFetcher(t, FetchConfig{Timeout: 5 * time.Second})

	res, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Throttled() {
		t.Errorf("expected throttled result, got status %d", res.StatusCode)
	}
	if !res.Challenged || res.ChallengeSrc != "Google Sorry" {
		t.Errorf("expected sorry page detection, got %v %q", res.Challenged, res.ChallengeSrc)
	}
}

func TestFetcher_DecodesCompressedBodies(t *testing.T) {
	const page = "<html><body>compressed results</body></html>"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			_, _ = gz.Write([]byte(page))
			_ = gz.Close()
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			br := brotli.NewWriter(w)
			_, _ = br.Write([]byte(page))
			_ = br.Close()
		default:
			_, _ = w.Write([]byte(page))
		}
	}))
	defer ts.Close()

	f := newTestFetcher(t, FetchConfig{Timeout: 5 * time.Second})

	for _, path := range []string{"/gzip", "/br", "/plain"} {
		res, err := f.Fetch(context.Background(), ts.URL+path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", path, err)
		}
		if res.Error != "" {
			t.Fatalf("%s: unexpected fetch error: %s", path, res.Error)
		}
		if string(res.Body) != page {
			t.Errorf("%s: expected decoded body, got %q", path, res.Body)
		}
	}
}

func TestFetcher_BodyLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer ts.Close()

	f := newTestFetcher(t, FetchConfig{Timeout: 5 * time.Second, MaxBodyBytes: 16})

	res, _ := f.Fetch(context.Background(), ts.URL)
	if !strings.Contains(res.Error, "exceeds limit") {
		t.Errorf("expected body limit error, got %q", res.Error)
	}
	if res.OK() {
		t.Errorf("truncated body must not count as a successful fetch")
	}
}

func TestFetcher_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	f := newTestFetcher(t, FetchConfig{Timeout: 10 * time.Millisecond})

	res, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("timeouts are reported in the result, got error %v", err)
	}
	if !strings.Contains(res.Error, "request failed") {
		t.Errorf("expected timeout error, got %v", res.Error)
	}
}

func TestFetcher_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	f := newTestFetcher(t, FetchConfig{Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, ts.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFetcher_TLSFingerprint(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	f := newTestFetcher(t, FetchConfig{
		Timeout:            5 * time.Second,
		Fingerprint:        fingerprint.ProfileChrome,
		InsecureSkipVerify: true,
	})

	res, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected 200 over uTLS, got %d (%s)", res.StatusCode, res.Error)
	}
}
