package scraper

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/rankr/internal/bypass"
	"github.com/FranksOps/rankr/internal/fingerprint"
	"github.com/FranksOps/rankr/internal/serp"
	"github.com/FranksOps/rankr/pkg/httpclient"
	"github.com/FranksOps/rankr/pkg/useragent"
	"github.com/andybalholm/brotli"
)

// DefaultMaxBodyBytes caps a results page body.
const DefaultMaxBodyBytes = 8 << 20

// FetchConfig configures the Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	// UserAgent yields the User-Agent header for each request.
	UserAgent    useragent.Source
	Fingerprint  fingerprint.Profile
	MaxBodyBytes int64
	// InsecureSkipVerify is for tests against self-signed servers.
	InsecureSkipVerify bool
}

// Fetcher performs single results-page GETs.
type Fetcher struct {
	config    FetchConfig
	client    *httpclient.Client
	detectors []bypass.Detector
}

// NewFetcher builds a Fetcher. A single client is held for the Fetcher's
// lifetime so consent cookies persist across queries when the jar is on.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == nil {
		cfg.UserAgent = useragent.NewPool(nil).Source()
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	var opts []fingerprint.Option
	if cfg.InsecureSkipVerify {
		opts = append(opts, fingerprint.WithInsecureSkipVerify())
	}
	transport, err := fingerprint.Transport(cfg.Fingerprint, opts...)
	if err != nil {
		return nil, fmt.Errorf("scraper: setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
		Header: http.Header{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.5"},
			"Accept-Encoding": {"gzip, deflate, br"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scraper: create client: %w", err)
	}

	return &Fetcher{
		config:    cfg,
		client:    client,
		detectors: bypass.DefaultDetectors(),
	}, nil
}

// Fetch GETs targetURL once. Transport and body errors are reported in
// FetchResult.Error; the returned error is non-nil only when ctx is done.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*serp.FetchResult, error) {
	start := time.Now()
	result := &serp.FetchResult{
		URL:       targetURL,
		FinalURL:  targetURL,
		CreatedAt: start.UTC(),
	}

	header := http.Header{}
	header.Set("User-Agent", f.config.UserAgent())

	resp, err := f.client.Get(ctx, targetURL, header)
	if err != nil {
		result.Duration = time.Since(start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, nil
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
	}
	result.StatusCode = resp.StatusCode
	result.Headers = resp.Header

	body, err := readBody(resp, f.config.MaxBodyBytes)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read body: %v", err)
	}
	result.Body = body
	result.Duration = time.Since(start)

	bypass.Analyze(result, f.detectors)

	return result, nil
}

// Close releases idle connections held by the transport.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// readBody decodes the Content-Encoding ourselves because an explicit
// Accept-Encoding header turns off the transport's transparent gzip.
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	if resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return body, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return body[:limit], fmt.Errorf("response body exceeds limit of %d bytes", limit)
	}
	return body, nil
}
