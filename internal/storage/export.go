package storage

import (
	"fmt"
	"strconv"

	"github.com/FranksOps/rankr/internal/serp"
)

// ExportHeaders is the column order of tabular exports.
var ExportHeaders = []string{
	"Query",
	"Position",
	"Domain Found",
	"Title",
	"Link",
	"Snippet Type",
	"SERP HTML",
}

// ExportRecord renders a row in ExportHeaders order.
func ExportRecord(r serp.ResultRow) []string {
	return []string{
		r.Query,
		strconv.Itoa(r.Position),
		r.DomainFoundLabel(),
		r.Title,
		r.Link,
		string(r.SnippetType),
		r.SERPHTML,
	}
}

// ParseExportRecord is the inverse of ExportRecord. Missing trailing cells
// are read as empty.
func ParseExportRecord(rec []string) (serp.ResultRow, error) {
	if len(rec) > len(ExportHeaders) || len(rec) < 2 {
		return serp.ResultRow{}, fmt.Errorf("storage: expected %d columns, got %d", len(ExportHeaders), len(rec))
	}
	if len(rec) < len(ExportHeaders) {
		padded := make([]string, len(ExportHeaders))
		copy(padded, rec)
		rec = padded
	}
	pos, err := strconv.Atoi(rec[1])
	if err != nil {
		return serp.ResultRow{}, fmt.Errorf("storage: bad position %q: %w", rec[1], err)
	}
	return serp.ResultRow{
		Query:       rec[0],
		Position:    pos,
		DomainFound: rec[2] == "Yes",
		Title:       rec[3],
		Link:        rec[4],
		SnippetType: serp.SnippetType(rec[5]),
		SERPHTML:    rec[6],
	}, nil
}
