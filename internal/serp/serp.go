// Package serp holds the search-result model: the per-run request, the rows
// parsed from a results page, URL construction, and the markup parser.
package serp

import (
	"errors"
	"net/http"
	"time"
)

// NotSaved is recorded in ResultRow.SERPHTML when markup persistence is off.
const NotSaved = "Not saved"

// NoTitle is the placeholder title for a listing without a heading.
const NoTitle = "No title"

// ErrThrottled marks a response the search host rejected with HTTP 429.
var ErrThrottled = errors.New("serp: throttled by search host")

// Request is the immutable configuration of one run.
type Request struct {
	// ResultDomain is the search host without the www prefix, e.g. google.com.
	ResultDomain string
	Country      string
	Language     string
	// ResultsPerPage is passed through to the num parameter unvalidated.
	ResultsPerPage string
	// TrackDomain is matched as a substring of each link. Empty disables tracking.
	TrackDomain       string
	StopOnDomainFound bool
	SaveHTML          bool
	// BaseURL replaces https://www.{ResultDomain} when set.
	BaseURL string
}

// Tracking reports whether a target domain was configured.
func (r Request) Tracking() bool {
	return r.TrackDomain != ""
}

// SnippetType labels the featured snippet shown above the listings.
type SnippetType string

const (
	SnippetNone      SnippetType = ""
	SnippetList      SnippetType = "List type featured snippet"
	SnippetParagraph SnippetType = "Paragraph Featured Snippet"
	SnippetTable     SnippetType = "Table Featured Snippet"
)

// ResultRow is one ranked listing.
type ResultRow struct {
	Query       string      `json:"query"`
	Position    int         `json:"position"`
	DomainFound bool        `json:"domain_found"`
	Title       string      `json:"title"`
	Link        string      `json:"link"`
	SnippetType SnippetType `json:"snippet_type"`
	SERPHTML    string      `json:"serp_html"`
}

// DomainFoundLabel renders DomainFound the way exports show it.
func (r ResultRow) DomainFoundLabel() string {
	if r.DomainFound {
		return "Yes"
	}
	return "No"
}

// ResultSet is every row of a run in query order, then document order.
type ResultSet struct {
	Rows []ResultRow
}

// Append adds rows to the end of the set.
func (s *ResultSet) Append(rows ...ResultRow) {
	s.Rows = append(s.Rows, rows...)
}

// Len returns the number of rows.
func (s ResultSet) Len() int { return len(s.Rows) }

// Empty reports whether the run produced no rows at all.
func (s ResultSet) Empty() bool { return len(s.Rows) == 0 }

// DomainMatches returns the rows whose link contained the tracked domain.
func (s ResultSet) DomainMatches() []ResultRow {
	var out []ResultRow
	for _, r := range s.Rows {
		if r.DomainFound {
			out = append(out, r)
		}
	}
	return out
}

// ForQuery returns the rows emitted for query.
func (s ResultSet) ForQuery(query string) []ResultRow {
	var out []ResultRow
	for _, r := range s.Rows {
		if r.Query == query {
			out = append(out, r)
		}
	}
	return out
}

// FetchResult is the outcome of a single HTTP attempt against the search host.
type FetchResult struct {
	URL          string
	FinalURL     string // after redirects
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	Challenged   bool
	ChallengeSrc string // e.g. "Google Sorry", "reCAPTCHA", "Consent"
	CreatedAt    time.Time
	Error        string // non-empty if the request failed before a response
}

// ContentType returns the response Content-Type header.
func (f *FetchResult) ContentType() string {
	if f.Headers == nil {
		return ""
	}
	return f.Headers.Get("Content-Type")
}

// Throttled reports an HTTP 429 response.
func (f *FetchResult) Throttled() bool {
	return f.Error == "" && f.StatusCode == http.StatusTooManyRequests
}

// OK reports a 2xx response with no transport error.
func (f *FetchResult) OK() bool {
	return f.Error == "" && f.StatusCode >= 200 && f.StatusCode < 300
}
