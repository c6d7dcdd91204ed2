package serp

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page identifies the results page being extracted.
type Page struct {
	Query string
	// SavedPath is stamped on every row; NotSaved when empty.
	SavedPath string
}

// Extract turns one results page into rows.
//
// Positions start at 1 and only advance for blocks with a link not already
// seen on this page. The page snippet type goes on position 1 only. When
// req.StopOnDomainFound is set, extraction ends after the first row whose
// link contains req.TrackDomain.
func Extract(doc *goquery.Document, p Parser, req Request, page Page) []ResultRow {
	saved := page.SavedPath
	if saved == "" {
		saved = NotSaved
	}

	snippet := p.SnippetType(doc)
	seen := make(map[string]struct{})
	position := 0

	var rows []ResultRow
	for _, block := range p.ResultBlocks(doc) {
		link, ok := p.Link(block)
		if !ok {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		position++

		title, ok := p.Title(block)
		if !ok {
			title = NoTitle
		}

		row := ResultRow{
			Query:       page.Query,
			Position:    position,
			DomainFound: MatchesDomain(req.TrackDomain, link),
			Title:       title,
			Link:        link,
			SERPHTML:    saved,
		}
		if position == 1 {
			row.SnippetType = snippet
		}
		rows = append(rows, row)

		if req.StopOnDomainFound && row.DomainFound {
			break
		}
	}
	return rows
}

// MatchesDomain reports whether a non-empty target occurs in link.
func MatchesDomain(target, link string) bool {
	return target != "" && strings.Contains(link, target)
}
