// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package feed projects the archive into an RSS 2.0 document.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"go.astrophena.name/dailyread/internal/archive"

	"github.com/mmcdole/gofeed"
)

// Limit is the maximum number of archive entries included in a feed.
const Limit = 30

// Channel describes the feed as a whole.
type Channel struct {
	Title       string
	Description string
	Language    string
	// BaseURL is prepended to entry paths to build item links. When empty,
	// links are the bare relative paths.
	BaseURL string
}

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	Language      string `xml:"language,omitempty"`
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	Items         []item `xml:"item"`
}

type item struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    guid   `xml:"guid"`
	PubDate string `xml:"pubDate"`
}

type guid struct {
	IsPermaLink string `xml:"isPermaLink,attr,omitempty"`
	Value       string `xml:",chardata"`
}

// Project renders the first [Limit] entries, in their stored order, as an RSS
// document. The result depends only on its arguments.
func Project(entries []archive.Entry, ch Channel) ([]byte, error) {
	base := strings.TrimRight(ch.BaseURL, "/")

	doc := rss{
		Version: "2.0",
		Channel: channel{
			Title:       ch.Title,
			Link:        base,
			Description: ch.Description,
			Language:    ch.Language,
		},
	}

	for _, e := range entries[:min(len(entries), Limit)] {
		pub, err := PubDate(e.Date)
		if err != nil {
			return nil, err
		}
		link := Link(base, e.Path)
		it := item{
			Title:   e.Title,
			Link:    link,
			GUID:    guid{Value: link},
			PubDate: pub,
		}
		if base == "" {
			it.GUID.IsPermaLink = "false"
		}
		doc.Channel.Items = append(doc.Channel.Items, it)
	}
	if len(doc.Channel.Items) > 0 {
		doc.Channel.LastBuildDate = doc.Channel.Items[0].PubDate
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Link joins base (without a trailing slash) and path.
func Link(base, path string) string {
	if base == "" {
		return path
	}
	return base + "/" + strings.TrimPrefix(path, "/")
}

// PubDate formats a YYYY-MM-DD date as midnight UTC in RSS date format.
func PubDate(date string) (string, error) {
	t, err := time.ParseInLocation(archive.DateLayout, date, time.UTC)
	if err != nil {
		return "", fmt.Errorf("feed: %w %q in archive", archive.ErrInvalidDate, date)
	}
	return t.Format(time.RFC1123Z), nil
}

// Parse parses a feed document.
func Parse(b []byte) (*gofeed.Feed, error) {
	f, err := gofeed.NewParser().ParseString(string(b))
	if err != nil {
		return nil, fmt.Errorf("feed: parsing: %w", err)
	}
	return f, nil
}
