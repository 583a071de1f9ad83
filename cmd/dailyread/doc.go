// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Dailyread generates the daily deep read page, and maintains its archive and RSS
feed.

# Usage

	$ dailyread [flags...] <command> [args...]

# Commands

  - run: generate today's page into daily/YYYY-MM-DD.html, add it to
    archive.json and regenerate feed.xml.
  - feed: regenerate feed.xml from archive.json.
  - archive: list archived pages. Use -json for JSON output.
  - check FILE: print whether an HTML file has a valid structure, how many
    articles it has and what title it would be archived under.

If no generative API is configured, or it fails, or it returns something that
isn't an HTML document, run stores a static sample page instead. Either way the
page is archived and the run succeeds; only storage errors and a corrupt
archive.json make it fail.

# Environment Variables

  - OPENAI_API_KEY: OpenAI API key.
  - OPENAI_MODEL: OpenAI model to use. Defaults to "gpt-4o".
  - OPENAI_BASE_URL: URL of an OpenAI-compatible API.
  - GEMINI_API_KEY: Gemini API key, used when OPENAI_API_KEY isn't set.
  - GEMINI_MODEL: Gemini model to use. Defaults to "gemini-1.5-flash".
  - DAILYREAD_PROVIDER: "auto" (default), "openai" or "gemini". Same as -provider.
  - REPO_URL: public URL where the output directory is served, used for feed
    links. Same as -base-url.
  - TELEGRAM_TOKEN and CHAT_ID: if both are set, run reports its outcome to
    this Telegram chat.

# Configuration

Prompts and site settings can be changed in dailyread.star in the output
directory (or the file passed with -config). It's a Starlark file that may
define any of these globals:

	title = "Daily Deep Read"
	description = "Archive of daily deep reads"
	language = "en"
	min_articles = 18
	inspector = "dom"
	system_prompt = DEFAULT_SYSTEM_PROMPT + "\nWrite in English."
	user_prompt = lambda date: "Make the page for %s." % date
	topup_prompt = DEFAULT_TOPUP_PROMPT

If the page has fewer than min_articles articles, run asks for a more complete
page once more and keeps the new one if it has more articles.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/dailyread/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
