// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"go.astrophena.name/dailyread/internal/api/telegram"
	"go.astrophena.name/dailyread/internal/archive"
	"go.astrophena.name/dailyread/internal/cli"
	"go.astrophena.name/dailyread/internal/cli/envflag"
	"go.astrophena.name/dailyread/internal/config"
	"go.astrophena.name/dailyread/internal/digest"
	"go.astrophena.name/dailyread/internal/document"
	"go.astrophena.name/dailyread/internal/feed"
	"go.astrophena.name/dailyread/internal/logger"
	"go.astrophena.name/dailyread/internal/producer"
)

func main() { cli.Main(new(app)) }

type app struct {
	// configuration
	dir        string
	date       string
	configPath string
	inspector  string
	json       bool
	debug      bool
	baseURL    *string
	provider   *string

	// for tests
	httpc    *http.Client
	now      func() time.Time
	tgAPIURL string
}

func (a *app) Flags(fs *flag.FlagSet, env *cli.Env) {
	fs.StringVar(&a.dir, "dir", ".", "Output `directory` with archive.json, feed.xml and daily pages.")
	fs.StringVar(&a.date, "date", "", "Generate the page for this `YYYY-MM-DD` date instead of today.")
	fs.StringVar(&a.configPath, "config", "", "Path to the Starlark configuration `file`. Defaults to "+config.FileName+" in the output directory.")
	fs.StringVar(&a.inspector, "inspector", "", "Document inspector: \"heuristic\" or \"dom\". Overrides the configuration file.")
	fs.BoolVar(&a.json, "json", false, "Output in JSON format (honored in supported commands).")
	fs.BoolVar(&a.debug, "debug", false, "Enable debug logging.")
	a.baseURL = envflag.Value(fs, env.Getenv, "base-url", "REPO_URL", "", "Public `URL` of the output directory, used for feed links.")
	a.provider = envflag.Value(fs, env.Getenv, "provider", "DAILYREAD_PROVIDER", producer.ProviderAuto, "Generative API `provider`: auto, openai or gemini.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	if a.debug {
		logger.Get(ctx).Level.Set(slog.LevelDebug)
	}

	if len(env.Args) == 0 {
		return fmt.Errorf("%w: command is required, see -help for usage", cli.ErrInvalidArgs)
	}

	command := env.Args[0]
	switch command {
	case "run":
		if len(env.Args) != 1 {
			return fmt.Errorf("%w: run command takes no arguments", cli.ErrInvalidArgs)
		}
		return a.run(ctx, env)
	case "feed":
		return a.writeFeed(ctx, env)
	case "archive":
		return a.listArchive(env.Stdout)
	case "check":
		if len(env.Args) != 2 {
			return fmt.Errorf("%w: check command expects a file name", cli.ErrInvalidArgs)
		}
		return a.check(env, env.Args[1])
	default:
		return fmt.Errorf("%w: no such command %q", cli.ErrInvalidArgs, command)
	}
}

func (a *app) run(ctx context.Context, env *cli.Env) error {
	log := logger.Get(ctx)

	date, err := a.day()
	if err != nil {
		return err
	}

	cfg, in, err := a.loadConfig(env)
	if err != nil {
		return err
	}

	prod, err := producer.New(producer.Config{
		Provider:      *a.provider,
		OpenAIKey:     env.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   env.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL: env.Getenv("OPENAI_BASE_URL"),
		GeminiKey:     env.Getenv("GEMINI_API_KEY"),
		GeminiModel:   env.Getenv("GEMINI_MODEL"),
		HTTPClient:    a.httpc,
	})
	switch {
	case errors.Is(err, producer.ErrNoCredential):
		log.Warn("generative API is not configured, will use fallback content", "err", err)
		prod = nil
	case err != nil:
		return fmt.Errorf("%w: %v", cli.ErrInvalidArgs, err)
	default:
		log.Debug("using producer", "name", prod.Name())
	}

	res, err := digest.Run(ctx, digest.Params{
		Date:      date,
		Dir:       a.dir,
		BaseURL:   *a.baseURL,
		Producer:  prod,
		Inspector: in,
		Config:    cfg,
	})
	if err != nil {
		log.Error("run failed", "err", err)
		a.notify(ctx, env, fmt.Sprintf("%s %s: failed: %v", cfg.Title, date, err))
		return err
	}

	link := feed.Link(strings.TrimRight(*a.baseURL, "/"), res.Path)
	fmt.Fprintf(env.Stdout, "%s: %s (%d articles)\n", res.Outcome, link, res.Units)
	a.notify(ctx, env, fmt.Sprintf("%s %s: %s\n%s", cfg.Title, date, res.Outcome, link))
	return nil
}

// notify reports to Telegram, if it's configured. Failures are only logged.
func (a *app) notify(ctx context.Context, env *cli.Env, msg string) {
	token, chatID := env.Getenv("TELEGRAM_TOKEN"), env.Getenv("CHAT_ID")
	if token == "" || chatID == "" {
		return
	}
	tg := &telegram.Client{Token: token, APIURL: a.tgAPIURL, HTTPClient: a.httpc}
	if err := tg.SendMessage(ctx, chatID, msg); err != nil {
		logger.Get(ctx).Warn("failed to send notification", "err", err)
	}
}

func (a *app) writeFeed(ctx context.Context, env *cli.Env) error {
	cfg, _, err := a.loadConfig(env)
	if err != nil {
		return err
	}
	entries, err := archive.Load(filepath.Join(a.dir, digest.ArchiveFile))
	if err != nil {
		return err
	}
	if err := digest.WriteFeed(a.dir, entries, digest.Channel(cfg, *a.baseURL)); err != nil {
		return err
	}
	logger.Get(ctx).Info("wrote feed", "items", min(len(entries), feed.Limit))
	return nil
}

func (a *app) listArchive(w io.Writer) error {
	entries, err := archive.Load(filepath.Join(a.dir, digest.ArchiveFile))
	if err != nil {
		return err
	}

	if a.json {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Date, e.Title, e.Path)
	}
	return tw.Flush()
}

func (a *app) check(env *cli.Env, name string) error {
	b, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	date, err := a.day()
	if err != nil {
		return err
	}
	_, in, err := a.loadConfig(env)
	if err != nil {
		return err
	}

	doc := document.StripFences(string(b))
	res := struct {
		Valid    bool   `json:"valid"`
		Articles int    `json:"articles"`
		Title    string `json:"title"`
	}{in.Valid(doc), in.CountUnits(doc), in.Title(doc, date)}

	if a.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	}
	fmt.Fprintf(env.Stdout, "valid: %t\narticles: %d\ntitle: %s\n", res.Valid, res.Articles, res.Title)
	return nil
}

// day returns the date the command works on.
func (a *app) day() (string, error) {
	if a.date == "" {
		now := time.Now
		if a.now != nil {
			now = a.now
		}
		return now().Format(archive.DateLayout), nil
	}
	if err := archive.ValidateDate(a.date); err != nil {
		return "", fmt.Errorf("%w: -date: %w", cli.ErrInvalidArgs, err)
	}
	return a.date, nil
}

func (a *app) loadConfig(env *cli.Env) (*config.Config, document.Inspector, error) {
	cfg, err := config.Load(cmp.Or(a.configPath, filepath.Join(a.dir, config.FileName)), env.Logf)
	if err != nil {
		return nil, nil, err
	}
	in, err := document.New(cmp.Or(a.inspector, cfg.Inspector), cfg.Title)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", cli.ErrInvalidArgs, err)
	}
	return cfg, in, nil
}
