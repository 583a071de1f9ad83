// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package document

import (
	"html"
	"regexp"
)

var (
	rootRe    = regexp.MustCompile(`(?i)<html[\s/>]`)
	articleRe = regexp.MustCompile(`(?i)<article[\s/>]`)
	titleRe   = regexp.MustCompile(`(?i)<title\b[^>]*>([^<]+)</title>`)
	h1Re      = regexp.MustCompile(`(?i)<h1\b[^>]*>([^<]+)`)
)

// Heuristic is an [Inspector] that scans the markup with regular expressions.
// It tolerates anything around the document, such as prose or code fences.
type Heuristic struct {
	Site string
}

func (h *Heuristic) Valid(doc string) bool     { return rootRe.MatchString(doc) }
func (h *Heuristic) CountUnits(doc string) int { return len(articleRe.FindAllStringIndex(doc, -1)) }

func (h *Heuristic) Title(doc, date string) string {
	return title(h.Site, date, firstGroup(titleRe, doc), firstGroup(h1Re, doc))
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return html.UnescapeString(m[1])
}

var _ Inspector = (*Heuristic)(nil)
