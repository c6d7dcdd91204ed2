package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout time.Duration
	// MaxRedirects < 0 disables redirects entirely; 0 uses DefaultMaxRedirects.
	MaxRedirects int
	// UseCookieJar keeps consent/session cookies between queries.
	UseCookieJar bool
	// Transport overrides the round tripper, e.g. a uTLS fingerprint transport.
	Transport http.RoundTripper
	// Header is copied onto every request that does not already set the key.
	Header http.Header
}

// DefaultMaxRedirects caps redirect chains when Config.MaxRedirects is zero.
const DefaultMaxRedirects = 10

// ErrNilContext is returned by Do when called without a context.
var ErrNilContext = errors.New("httpclient: context cannot be nil")

// Client wraps a standard http.Client with a redirect policy, an optional
// cookie jar and default headers.
type Client struct {
	*http.Client
	header http.Header
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}

	c := &http.Client{Timeout: cfg.Timeout}

	if cfg.MaxRedirects > 0 {
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("httpclient: stopped after %d redirects", limit)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c, header: cfg.Header.Clone()}, nil
}

// Do executes req bound to ctx. ctx controls cancellation independently of
// the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	reqWithCtx := req.Clone(ctx)
	for k, vals := range c.header {
		if reqWithCtx.Header.Get(k) != "" {
			continue
		}
		for _, v := range vals {
			reqWithCtx.Header.Add(k, v)
		}
	}

	resp, err := c.Client.Do(reqWithCtx)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return resp, nil
}

// Get issues a GET for rawURL with the given extra headers.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build request: %w", err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	return c.Do(ctx, req)
}
