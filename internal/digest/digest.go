// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package digest produces the daily page and keeps the archive and feed in
// step with it.
package digest

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"

	"go.astrophena.name/dailyread/internal/archive"
	"go.astrophena.name/dailyread/internal/atomicio"
	"go.astrophena.name/dailyread/internal/config"
	"go.astrophena.name/dailyread/internal/document"
	"go.astrophena.name/dailyread/internal/feed"
	"go.astrophena.name/dailyread/internal/logger"
	"go.astrophena.name/dailyread/internal/producer"
)

// Names of the files maintained in the output directory.
const (
	ArchiveFile = "archive.json"
	FeedFile    = "feed.xml"
)

//go:embed fallback.html.tmpl
var fallbackTmpl string

var fallbackTemplate = template.Must(template.New("fallback").Parse(fallbackTmpl))

// Outcome tells where the persisted page came from.
type Outcome int

const (
	// Generated means the page was produced by the generative API.
	Generated Outcome = iota
	// Fallback means the static sample page was used.
	Fallback
)

func (o Outcome) String() string {
	switch o {
	case Generated:
		return "generated"
	case Fallback:
		return "fallback"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Params describe a single run.
type Params struct {
	// Date is the day of the page, as YYYY-MM-DD.
	Date string
	// Dir is the output directory.
	Dir string
	// BaseURL is the public root under which Dir is served. It may be empty.
	BaseURL string
	// Producer generates the page. If nil, the fallback page is used.
	Producer producer.Producer
	// Inspector checks generated pages. Defaults to a heuristic one.
	Inspector document.Inspector
	// Config holds prompts and site settings. Defaults to config.Default().
	Config *config.Config
}

// Result describes what a run has persisted.
type Result struct {
	Outcome Outcome
	// Supplemented is true if the page came from the supplementary request.
	Supplemented bool
	Title        string
	// Path is the page location relative to the output directory.
	Path  string
	Units int
	// Archive is the archive after the update.
	Archive []archive.Entry
}

// Run produces the page for p.Date and updates the archive and the feed.
// Failures to produce content are not errors: the fallback page is used.
// Returned errors mean nothing could be persisted consistently.
func Run(ctx context.Context, p Params) (*Result, error) {
	if err := archive.ValidateDate(p.Date); err != nil {
		return nil, err
	}
	if p.Config == nil {
		p.Config = config.Default()
	}
	if p.Inspector == nil {
		p.Inspector = &document.Heuristic{Site: p.Config.Title}
	}
	log := logger.Get(ctx)

	user, err := p.Config.UserPrompt(p.Date)
	if err != nil {
		return nil, err
	}

	res := &Result{Outcome: Generated}
	doc, err := generate(ctx, p, user)
	switch {
	case p.Producer == nil:
		log.Info("no producer configured")
	case err != nil:
		log.Warn("generation failed", "err", err)
	case !p.Inspector.Valid(doc):
		log.Warn("generated content has no <html> root", "bytes", len(doc))
		err = errInvalid
	}
	if err != nil {
		res.Outcome = Fallback
		if doc, err = Page(p.Config, p.Date); err != nil {
			return nil, err
		}
	}
	res.Units = p.Inspector.CountUnits(doc)

	if p.Producer != nil && res.Units < p.Config.MinArticles {
		log.Info("too few articles, requesting more", "have", res.Units, "want", p.Config.MinArticles)
		more, err := generate(ctx, p, user+p.Config.TopUpPrompt)
		switch {
		case err != nil:
			log.Warn("supplementary generation failed", "err", err)
		case !p.Inspector.Valid(more):
			log.Warn("supplementary content has no <html> root", "bytes", len(more))
		default:
			if n := p.Inspector.CountUnits(more); n > res.Units {
				doc, res.Units = more, n
				res.Outcome, res.Supplemented = Generated, true
			} else {
				log.Info("supplementary content has no more articles", "have", n)
			}
		}
	}

	switch res.Outcome {
	case Generated:
		log.Info("used generated content", "articles", res.Units, "supplemented", res.Supplemented)
	case Fallback:
		log.Info("used fallback content", "articles", res.Units)
	}

	res.Path = archive.PagePath(p.Date)
	if err := atomicio.WriteFile(filepath.Join(p.Dir, filepath.FromSlash(res.Path)), []byte(doc), 0o644); err != nil {
		return nil, fmt.Errorf("writing page: %w", err)
	}
	res.Title = p.Inspector.Title(doc, p.Date)

	af := &archive.File{Path: filepath.Join(p.Dir, ArchiveFile)}
	if res.Archive, err = af.Upsert(archive.Entry{Date: p.Date, Title: res.Title, Path: res.Path}); err != nil {
		return nil, err
	}

	if err := WriteFeed(p.Dir, res.Archive, Channel(p.Config, p.BaseURL)); err != nil {
		return nil, err
	}
	return res, nil
}

var errInvalid = errors.New("invalid document")

func generate(ctx context.Context, p Params, user string) (string, error) {
	if p.Producer == nil {
		return "", producer.ErrUnavailable
	}
	doc, err := p.Producer.Generate(ctx, p.Config.SystemPrompt, user)
	if err != nil {
		return "", err
	}
	return document.StripFences(doc), nil
}

// Page renders the static fallback page for date.
func Page(c *config.Config, date string) (string, error) {
	var buf bytes.Buffer
	if err := fallbackTemplate.Execute(&buf, struct {
		Site, Language, Date string
	}{c.Title, c.Language, date}); err != nil {
		return "", fmt.Errorf("rendering fallback page: %w", err)
	}
	return buf.String(), nil
}

// Channel returns the feed channel described by c.
func Channel(c *config.Config, baseURL string) feed.Channel {
	return feed.Channel{
		Title:       c.Title,
		Description: c.Description,
		Language:    c.Language,
		BaseURL:     baseURL,
	}
}

// WriteFeed projects entries into a feed, checks that it parses back and
// writes it into dir.
func WriteFeed(dir string, entries []archive.Entry, ch feed.Channel) error {
	b, err := feed.Project(entries, ch)
	if err != nil {
		return err
	}
	if _, err := feed.Parse(b); err != nil {
		return fmt.Errorf("generated feed doesn't parse: %w", err)
	}
	if err := atomicio.WriteFile(filepath.Join(dir, FeedFile), b, 0o644); err != nil {
		return fmt.Errorf("writing feed: %w", err)
	}
	return nil
}
