// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package document judges generated HTML pages by their shape, without
// looking at what they say.
package document

import (
	"fmt"
	"regexp"
	"strings"
)

// Inspector checks the structure of a generated page.
type Inspector interface {
	// Valid reports whether doc looks like a complete HTML document, that is,
	// has an <html> root.
	Valid(doc string) bool
	// CountUnits returns the number of <article> elements in doc.
	CountUnits(doc string) int
	// Title returns the title of doc. If the page has no usable <title>, it is
	// built from the site name, date and the first <h1>, or just the site name
	// and date. It never returns an empty string.
	Title(doc, date string) string
}

// Kinds of inspectors accepted by [New].
const (
	KindHeuristic = "heuristic"
	KindDOM       = "dom"
)

// New returns an Inspector of the given kind. An empty kind means
// [KindHeuristic].
func New(kind, site string) (Inspector, error) {
	switch kind {
	case "", KindHeuristic:
		return &Heuristic{Site: site}, nil
	case KindDOM:
		return &DOM{Site: site}, nil
	default:
		return nil, fmt.Errorf("unknown inspector %q, want %q or %q", kind, KindHeuristic, KindDOM)
	}
}

var fenceRe = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n(.*?)\n?```\\s*$")

// StripFences removes a Markdown code fence wrapping the whole of doc, which
// chat models like to add around HTML.
func StripFences(doc string) string {
	if m := fenceRe.FindStringSubmatch(doc); m != nil {
		return m[1]
	}
	return doc
}

func title(site, date, declared, heading string) string {
	if declared = clean(declared); declared != "" {
		return declared
	}
	if heading = clean(heading); heading != "" {
		return site + " - " + date + " - " + heading
	}
	return site + " - " + date
}

func clean(s string) string { return strings.Join(strings.Fields(s), " ") }
