// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package document

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DOM is an [Inspector] backed by an HTML parser. It is stricter than
// [Heuristic]: the first element of the page must be <html>.
type DOM struct {
	Site string
}

// Valid tokenizes doc instead of parsing it, because the HTML parser
// synthesizes an <html> element for any input.
func (d *DOM) Valid(doc string) bool {
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.DoctypeToken, html.CommentToken:
			continue
		case html.TextToken:
			if strings.TrimSpace(string(z.Text())) != "" {
				return false
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			return string(name) == "html"
		default:
			return false
		}
	}
}

func (d *DOM) CountUnits(doc string) int {
	q, err := parse(doc)
	if err != nil {
		return 0
	}
	return q.Find("article").Length()
}

func (d *DOM) Title(doc, date string) string {
	q, err := parse(doc)
	if err != nil {
		return title(d.Site, date, "", "")
	}
	return title(d.Site, date, q.Find("head title").First().Text(), q.Find("h1").First().Text())
}

func parse(doc string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(doc))
}

var _ Inspector = (*DOM)(nil)
