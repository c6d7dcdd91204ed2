package serp

import (
	"net/url"
	"strings"
)

// BuildURL returns the results-page URL for query. The query is trimmed and
// form-encoded; personalized results are always disabled (pws=0).
func BuildURL(req Request, query string) string {
	base := strings.TrimRight(req.BaseURL, "/")
	if base == "" {
		base = "https://www." + req.ResultDomain
	}

	// Fixed parameter order keeps URLs stable in logs and snapshots.
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("/search?q=")
	b.WriteString(url.QueryEscape(strings.TrimSpace(query)))
	b.WriteString("&gl=")
	b.WriteString(url.QueryEscape(req.Country))
	b.WriteString("&hl=")
	b.WriteString(url.QueryEscape(req.Language))
	b.WriteString("&num=")
	b.WriteString(url.QueryEscape(req.ResultsPerPage))
	b.WriteString("&pws=0")
	return b.String()
}
