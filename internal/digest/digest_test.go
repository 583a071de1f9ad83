// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package digest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.astrophena.name/dailyread/internal/archive"
	"go.astrophena.name/dailyread/internal/config"
	"go.astrophena.name/dailyread/internal/document"
	"go.astrophena.name/dailyread/internal/feed"
	"go.astrophena.name/dailyread/internal/producer"
	"go.astrophena.name/dailyread/internal/testutil"

	"golang.org/x/tools/txtar"
)

const testDate = "2024-01-03"

// page returns a valid document with n articles.
func page(title string, n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<!doctype html>\n<html>\n<head><title>%s</title></head>\n<body>\n", title)
	for i := range n {
		fmt.Fprintf(&sb, "<article><h3>Item %d</h3></article>\n", i+1)
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// fakeProducer replies with replies in turn and records user prompts.
type fakeProducer struct {
	replies []reply
	prompts []string
}

type reply struct {
	doc string
	err error
}

func (f *fakeProducer) Generate(ctx context.Context, system, user string) (string, error) {
	f.prompts = append(f.prompts, user)
	if len(f.prompts) > len(f.replies) {
		return "", fmt.Errorf("%w: unexpected call", producer.ErrUnavailable)
	}
	r := f.replies[len(f.prompts)-1]
	return r.doc, r.err
}

func (f *fakeProducer) Name() string { return "fake" }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.Parse("test.star", "min_articles = 3", t.Logf)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func run(t *testing.T, dir string, prod producer.Producer) (*Result, error) {
	t.Helper()
	return Run(context.Background(), Params{
		Date:     testDate,
		Dir:      dir,
		BaseURL:  "https://example.com/",
		Producer: prod,
		Config:   testConfig(t),
	})
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	return string(testutil.ReadFile(t, filepath.Join(dir, filepath.FromSlash(name))))
}

func loadArchive(t *testing.T, dir string) []archive.Entry {
	t.Helper()
	entries, err := archive.Load(filepath.Join(dir, ArchiveFile))
	if err != nil {
		t.Fatal(err)
	}
	return entries
}

func TestRunGenerated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := page("Daily 3", 3)
	fp := &fakeProducer{replies: []reply{{doc: doc}}}

	res, err := run(t, dir, fp)
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, res.Outcome, Generated)
	testutil.AssertEqual(t, res.Supplemented, false)
	testutil.AssertEqual(t, res.Units, 3)
	testutil.AssertEqual(t, len(fp.prompts), 1)
	testutil.AssertEqual(t, readFile(t, dir, "daily/"+testDate+".html"), doc)

	want := []archive.Entry{{Date: testDate, Title: "Daily 3", Path: "daily/" + testDate + ".html"}}
	testutil.AssertEqual(t, res.Archive, want)
	testutil.AssertEqual(t, loadArchive(t, dir), want)

	f, err := feed.Parse([]byte(readFile(t, dir, FeedFile)))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(f.Items), 1)
	testutil.AssertEqual(t, f.Items[0].Title, "Daily 3")
	testutil.AssertEqual(t, f.Items[0].Link, "https://example.com/daily/"+testDate+".html")
}

func TestRunStripsFences(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := page("Fenced", 3)
	fp := &fakeProducer{replies: []reply{{doc: "```html\n" + doc + "```\n"}}}

	res, err := run(t, dir, fp)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, res.Outcome, Generated)
	if got := readFile(t, dir, res.Path); strings.Contains(got, "```") {
		t.Fatalf("page still has fences:\n%s", got)
	}
}

func TestRunFallback(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		prod        producer.Producer
		wantPrompts int
	}{
		"no producer": {},
		"producer error": {
			prod: &fakeProducer{replies: []reply{
				{err: fmt.Errorf("%w: 500", producer.ErrUnavailable)},
				{err: fmt.Errorf("%w: 500", producer.ErrUnavailable)},
			}},
			wantPrompts: 2,
		},
		"not html": {
			prod: &fakeProducer{replies: []reply{
				{doc: "Sorry, I can't browse the web."},
				{doc: "Still can't."},
			}},
			wantPrompts: 2,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			res, err := run(t, dir, tc.prod)
			if err != nil {
				t.Fatal(err)
			}

			testutil.AssertEqual(t, res.Outcome, Fallback)
			testutil.AssertEqual(t, res.Supplemented, false)
			testutil.AssertEqual(t, res.Units, 1)
			testutil.AssertEqual(t, res.Title, "每日深读 - "+testDate)
			if fp, ok := tc.prod.(*fakeProducer); ok {
				testutil.AssertEqual(t, len(fp.prompts), tc.wantPrompts)
			}

			got := readFile(t, dir, res.Path)
			if !strings.Contains(got, "<html") || !strings.Contains(got, testDate) {
				t.Fatalf("unexpected fallback page:\n%s", got)
			}
			testutil.AssertEqual(t, loadArchive(t, dir), []archive.Entry{
				{Date: testDate, Title: "每日深读 - " + testDate, Path: "daily/" + testDate + ".html"},
			})
		})
	}
}

func TestRunTopUp(t *testing.T) {
	t.Parallel()

	short := page("Short", 2)
	cases := map[string]struct {
		replies          []reply
		wantOutcome      Outcome
		wantSupplemented bool
		wantUnits        int
	}{
		"more articles": {
			replies:          []reply{{doc: short}, {doc: page("Full", 4)}},
			wantOutcome:      Generated,
			wantSupplemented: true,
			wantUnits:        4,
		},
		"fewer articles": {
			replies:     []reply{{doc: short}, {doc: page("Shorter", 1)}},
			wantOutcome: Generated,
			wantUnits:   2,
		},
		"same number of articles": {
			replies:     []reply{{doc: short}, {doc: page("Same", 2)}},
			wantOutcome: Generated,
			wantUnits:   2,
		},
		"invalid": {
			replies:     []reply{{doc: short}, {doc: "<article></article><article></article><article></article>"}},
			wantOutcome: Generated,
			wantUnits:   2,
		},
		"error": {
			replies:     []reply{{doc: short}, {err: producer.ErrUnavailable}},
			wantOutcome: Generated,
			wantUnits:   2,
		},
		"replaces fallback": {
			replies:          []reply{{err: producer.ErrUnavailable}, {doc: page("Late", 2)}},
			wantOutcome:      Generated,
			wantSupplemented: true,
			wantUnits:        2,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			fp := &fakeProducer{replies: tc.replies}
			res, err := run(t, t.TempDir(), fp)
			if err != nil {
				t.Fatal(err)
			}

			testutil.AssertEqual(t, res.Outcome, tc.wantOutcome)
			testutil.AssertEqual(t, res.Supplemented, tc.wantSupplemented)
			testutil.AssertEqual(t, res.Units, tc.wantUnits)

			testutil.AssertEqual(t, len(fp.prompts), 2)
			c := testConfig(t)
			if !strings.HasSuffix(fp.prompts[1], c.TopUpPrompt) {
				t.Fatalf("supplementary prompt must end with top-up suffix, got %q", fp.prompts[1])
			}
			if !strings.Contains(fp.prompts[0], testDate) {
				t.Fatalf("prompt must mention the date, got %q", fp.prompts[0])
			}
		})
	}
}

func TestRunSameDateTwice(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, title := range []string{"First", "Second"} {
		if _, err := run(t, dir, &fakeProducer{replies: []reply{{doc: page(title, 3)}}}); err != nil {
			t.Fatal(err)
		}
	}

	testutil.AssertEqual(t, readFile(t, dir, "daily/"+testDate+".html"), page("Second", 3))
	testutil.AssertEqual(t, loadArchive(t, dir), []archive.Entry{
		{Date: testDate, Title: "Second", Path: "daily/" + testDate + ".html"},
	})
}

const existing = `
-- archive.json --
[
  {
    "date": "2024-01-02",
    "title": "T2",
    "path": "daily/2024-01-02.html"
  },
  {
    "date": "2024-01-01",
    "title": "T1",
    "path": "daily/2024-01-01.html"
  }
]
`

func TestRunExistingArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.ExtractTxtar(t, txtar.Parse([]byte(existing)), dir)

	res, err := run(t, dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, loadArchive(t, dir), []archive.Entry{
		{Date: testDate, Title: "每日深读 - " + testDate, Path: "daily/" + testDate + ".html"},
		{Date: "2024-01-02", Title: "T2", Path: "daily/2024-01-02.html"},
		{Date: "2024-01-01", Title: "T1", Path: "daily/2024-01-01.html"},
	})
	testutil.AssertEqual(t, len(res.Archive), 3)

	f, err := feed.Parse([]byte(readFile(t, dir, FeedFile)))
	if err != nil {
		t.Fatal(err)
	}
	var titles []string
	for _, it := range f.Items {
		titles = append(titles, it.Title)
	}
	testutil.AssertEqual(t, titles, []string{"每日深读 - " + testDate, "T2", "T1"})
}

func TestRunFatal(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		archive string
		wantErr error
	}{
		"corrupt archive": {
			archive: `{"date": "2024-01-02"`,
			wantErr: archive.ErrCorrupt,
		},
		"empty archive": {
			archive: "",
			wantErr: archive.ErrCorrupt,
		},
		"malformed stored date": {
			archive: `[{"date": "yesterday", "title": "T", "path": "daily/yesterday.html"}]`,
			wantErr: archive.ErrInvalidDate,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, ArchiveFile)
			if err := os.WriteFile(path, []byte(tc.archive), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := run(t, dir, nil)
			testutil.AssertErrorIs(t, err, tc.wantErr)

			if _, err := os.Stat(filepath.Join(dir, FeedFile)); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("feed must not be written, stat: %v", err)
			}
			if errors.Is(tc.wantErr, archive.ErrCorrupt) {
				testutil.AssertEqual(t, readFile(t, dir, ArchiveFile), tc.archive)
			}
		})
	}
}

func TestRunBadUserPrompt(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		prod *fakeProducer
	}{
		"with producer":    {prod: &fakeProducer{replies: []reply{{doc: page("Daily", 3)}}}},
		"without producer": {},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c, err := config.Parse("test.star", "user_prompt = lambda date: 42", t.Logf)
			if err != nil {
				t.Fatal(err)
			}
			p := Params{Date: testDate, Dir: t.TempDir(), Config: c}
			if tc.prod != nil {
				p.Producer = tc.prod
			}

			_, err = Run(context.Background(), p)
			if err == nil || !strings.Contains(err.Error(), "user_prompt") {
				t.Fatalf("want user_prompt error, got %v", err)
			}
			if tc.prod != nil {
				testutil.AssertEqual(t, len(tc.prod.prompts), 0)
			}
			for _, name := range []string{ArchiveFile, FeedFile, "daily"} {
				if _, err := os.Stat(filepath.Join(p.Dir, name)); !errors.Is(err, os.ErrNotExist) {
					t.Fatalf("%s must not be written, stat: %v", name, err)
				}
			}
		})
	}
}

func TestRunInvalidDate(t *testing.T) {
	t.Parallel()
	_, err := Run(context.Background(), Params{Date: "03.01.2024", Dir: t.TempDir()})
	testutil.AssertErrorIs(t, err, archive.ErrInvalidDate)
}

func TestPage(t *testing.T) {
	t.Parallel()

	c := config.Default()
	doc, err := Page(c, testDate)
	if err != nil {
		t.Fatal(err)
	}

	for _, kind := range []string{document.KindHeuristic, document.KindDOM} {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			in, err := document.New(kind, c.Title)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, in.Valid(doc), true)
			testutil.AssertEqual(t, in.CountUnits(doc), 1)
			testutil.AssertEqual(t, in.Title(doc, testDate), "每日深读 - "+testDate)
		})
	}
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()
	testutil.AssertEqual(t, Generated.String(), "generated")
	testutil.AssertEqual(t, Fallback.String(), "fallback")
	testutil.AssertEqual(t, Outcome(7).String(), "Outcome(7)")
}
