// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package archive maintains the date-keyed index of generated daily pages.
//
// The index is a JSON array of entries, newest first, persisted as a single
// file. There is at most one entry per date: adding an entry for a date that is
// already present replaces that entry where it stands.
package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"go.astrophena.name/dailyread/internal/atomicio"
)

// DateLayout is the layout of [Entry.Date].
const DateLayout = time.DateOnly

// maxBackups is how many previous versions of the archive file are kept.
const maxBackups = 10

var (
	// ErrCorrupt is returned when the archive file exists but can't be parsed.
	ErrCorrupt = errors.New("archive is corrupt")
	// ErrInvalidDate is returned for entries whose date isn't YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
)

// Entry is a single archived page.
type Entry struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// PagePath returns the relative path of the page generated for date.
func PagePath(date string) string { return "daily/" + date + ".html" }

// ValidateDate reports whether date is a calendar date in YYYY-MM-DD form.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, date)
	}
	return nil
}

// Upsert returns entries with e added. If an entry for e.Date exists, its title
// and path are replaced in place; otherwise e is inserted at the front. The
// entries slice itself is not modified.
func Upsert(entries []Entry, e Entry) ([]Entry, error) {
	if err := ValidateDate(e.Date); err != nil {
		return nil, err
	}
	if i := slices.IndexFunc(entries, func(x Entry) bool { return x.Date == e.Date }); i >= 0 {
		next := slices.Clone(entries)
		next[i] = e
		return next, nil
	}
	return append([]Entry{e}, entries...), nil
}

// Load reads the archive stored at path. A missing file is an empty archive.
func Load(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCorrupt, path)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if entries == nil {
		// A literal null.
		return nil, fmt.Errorf("%w: %s is not an array", ErrCorrupt, path)
	}
	return entries, nil
}

// Save replaces the archive stored at path with entries.
func Save(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return err
	}
	return atomicio.WriteFile(path, buf.Bytes(), 0o644, atomicio.KeepBackups(maxBackups))
}

// File is an archive persisted at Path.
type File struct {
	Path string
}

// Upsert loads the archive, adds e to it, saves it back and returns the
// updated entries. A corrupt archive is left untouched.
func (f *File) Upsert(e Entry) ([]Entry, error) {
	entries, err := Load(f.Path)
	if err != nil {
		return nil, err
	}
	next, err := Upsert(entries, e)
	if err != nil {
		return nil, err
	}
	if err := Save(f.Path, next); err != nil {
		return nil, fmt.Errorf("saving archive: %w", err)
	}
	return next, nil
}
