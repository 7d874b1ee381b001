// Package processor flattens HTML fragments from standard detail pages
// into plain text.
package processor

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// Processor converts scraped HTML into embeddable text.
type Processor struct{}

// New creates a new processor.
func New() *Processor {
	return &Processor{}
}

// ScopeText flattens the scope section of a standard detail page into plain
// text. Catalogs publish scope as marked-up HTML; the corpus stores it flat
// so the whole record embeds as one blob.
func (p *Processor) ScopeText(scopeHTML string) (string, error) {
	if scopeHTML == "" {
		return "", nil
	}

	text, err := htmltomarkdown.ConvertString(scopeHTML)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// ExtractTitle extracts the <title> content from a detail page, used as a
// fallback when the catalog markup carries no explicit title node.
func (p *Processor) ExtractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
		}
	}
	findTitle(doc)

	return strings.TrimSpace(title)
}
