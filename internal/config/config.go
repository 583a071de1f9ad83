// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package config holds the prompts and site settings, and loads overrides
// for them from an optional Starlark file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.astrophena.name/dailyread/internal/logger"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// FileName is the name of the configuration file looked up in the output
// directory.
const FileName = "dailyread.star"

//go:embed system_prompt.txt
var defaultSystemPrompt string

const (
	defaultUserPrompt  = "请以今天为基准（{date}）生成完整 HTML 主页。若无法联网，请生成高质量示例内容，务必保持结构与数量完备。"
	defaultTopUpPrompt = "\n\n请仅在保持整体结构不变的前提下，补齐不足的条目，直到满足数量下限。"
)

// Config holds the prompts and site settings.
type Config struct {
	// Title, Description and Language describe the site and its feed.
	Title       string
	Description string
	Language    string

	// SystemPrompt is sent with every generation request.
	SystemPrompt string
	// TopUpPrompt is appended to the user prompt of the supplementary request.
	TopUpPrompt string
	// MinArticles is the number of <article> elements below which a
	// supplementary request is made.
	MinArticles int
	// Inspector is the kind of document inspector to use.
	Inspector string

	userPrompt func(date string) (string, error)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Title:        "每日深读",
		Description:  "每日深读归档",
		Language:     "zh-cn",
		SystemPrompt: strings.TrimSpace(defaultSystemPrompt),
		TopUpPrompt:  defaultTopUpPrompt,
		MinArticles:  24,
		userPrompt:   templatePrompt(defaultUserPrompt),
	}
}

// UserPrompt returns the user prompt for date.
func (c *Config) UserPrompt(date string) (string, error) {
	return c.userPrompt(date)
}

func templatePrompt(s string) func(string) (string, error) {
	return func(date string) (string, error) {
		return strings.ReplaceAll(s, "{date}", date), nil
	}
}

// Load reads the configuration file at path. A missing file yields the
// defaults.
func Load(path string, logf logger.Logf) (*Config, error) {
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(path, string(src), logf)
}

// Parse executes the Starlark source src and applies the globals it defines
// on top of the defaults:
//
//	title = "Daily Deep Read"
//	min_articles = 18
//	system_prompt = DEFAULT_SYSTEM_PROMPT + "\nWrite in English."
//	user_prompt = lambda date: "Make the page for %s." % date
//
// user_prompt may be a string, where {date} is replaced by the date, or a
// function of the date returning a string.
func Parse(filename, src string, logf logger.Logf) (*Config, error) {
	c := Default()

	thread := &starlark.Thread{
		Name:  "config",
		Print: func(_ *starlark.Thread, msg string) { logf("%s: %s", filename, msg) },
	}
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{TopLevelControl: true},
		thread,
		filename,
		src,
		starlark.StringDict{
			"DEFAULT_SYSTEM_PROMPT": starlark.String(c.SystemPrompt),
			"DEFAULT_USER_PROMPT":   starlark.String(defaultUserPrompt),
			"DEFAULT_TOPUP_PROMPT":  starlark.String(c.TopUpPrompt),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	for name, dst := range map[string]*string{
		"title":         &c.Title,
		"description":   &c.Description,
		"language":      &c.Language,
		"system_prompt": &c.SystemPrompt,
		"topup_prompt":  &c.TopUpPrompt,
		"inspector":     &c.Inspector,
	} {
		v, ok := globals[name]
		if !ok {
			continue
		}
		s, ok := starlark.AsString(v)
		if !ok {
			return nil, fmt.Errorf("config: %s must be a string, got %s", name, v.Type())
		}
		*dst = s
	}

	if v, ok := globals["min_articles"]; ok {
		n, err := starlark.AsInt32(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("config: min_articles must be a non-negative int, got %s", v.String())
		}
		c.MinArticles = n
	}

	if v, ok := globals["user_prompt"]; ok {
		switch v := v.(type) {
		case starlark.String:
			c.userPrompt = templatePrompt(string(v))
		case starlark.Callable:
			c.userPrompt = func(date string) (string, error) {
				res, err := starlark.Call(thread, v, starlark.Tuple{starlark.String(date)}, nil)
				if err != nil {
					return "", fmt.Errorf("config: user_prompt: %w", err)
				}
				s, ok := starlark.AsString(res)
				if !ok {
					return "", fmt.Errorf("config: user_prompt must return a string, got %s", res.Type())
				}
				return s, nil
			}
		default:
			return nil, fmt.Errorf("config: user_prompt must be a string or a function, got %s", v.Type())
		}
	}

	return c, nil
}
