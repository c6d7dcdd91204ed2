package serp

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Parser locates the facts the extractor needs inside a results page. All
// structural selectors live behind it; markup changes are fixed here only.
type Parser interface {
	// ResultBlocks returns the organic listing containers in document order.
	ResultBlocks(doc *goquery.Document) []*goquery.Selection
	// SnippetType classifies the page-level featured snippet, if any.
	SnippetType(doc *goquery.Document) SnippetType
	// Link returns the destination of a listing.
	Link(block *goquery.Selection) (string, bool)
	// Title returns the listing heading text.
	Title(block *goquery.Selection) (string, bool)
}

// Google result-page selectors. These class names are generated by Google's
// frontend and change without notice.
const (
	googleResultBlock    = "div.g"
	googleSnippetBlock   = "div.yp1CPe.wDYxhc.NFQFxe.viOShc.LKPcQc"
	googleListSnippet    = "div.di3YZe"
	googleParaSnippet    = `div.LGOjhe[data-attrid="wa:/description"]`
	googleTableSnippet   = "div.webanswers-webanswers_table__webanswers-table"
	googleListingAnchor  = "a[href]"
	googleListingHeading = "h3"
)

// GoogleParser implements Parser for the desktop Google results page.
type GoogleParser struct{}

var _ Parser = GoogleParser{}

func (GoogleParser) ResultBlocks(doc *goquery.Document) []*goquery.Selection {
	var blocks []*goquery.Selection
	doc.Find(googleResultBlock).Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, s)
	})
	return blocks
}

// SnippetType checks the list, paragraph and table variants in that order.
func (GoogleParser) SnippetType(doc *goquery.Document) SnippetType {
	block := doc.Find(googleSnippetBlock).First()
	if block.Length() == 0 {
		return SnippetNone
	}
	switch {
	case block.Find(googleListSnippet).Length() > 0:
		return SnippetList
	case block.Find(googleParaSnippet).Length() > 0:
		return SnippetParagraph
	case block.Find(googleTableSnippet).Length() > 0:
		return SnippetTable
	}
	return SnippetNone
}

func (GoogleParser) Link(block *goquery.Selection) (string, bool) {
	return block.Find(googleListingAnchor).First().Attr("href")
}

func (GoogleParser) Title(block *goquery.Selection) (string, bool) {
	h := block.Find(googleListingHeading).First()
	if h.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(h.Text()), true
}

// ParseDocument decodes body to UTF-8 using the Content-Type charset or the
// document's meta tags, then builds a goquery document.
func ParseDocument(body []byte, contentType string) (*goquery.Document, error) {
	var r io.Reader = bytes.NewReader(body)
	if decoded, err := charset.NewReader(r, contentType); err == nil {
		r = decoded
	} else {
		r = bytes.NewReader(body)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("serp: parse html: %w", err)
	}
	return doc, nil
}
