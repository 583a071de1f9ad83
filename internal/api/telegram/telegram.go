// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram sends messages through the Telegram Bot API.
package telegram

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"strings"

	"go.astrophena.name/dailyread/internal/request"
)

// DefaultAPIURL is the base URL of the Telegram Bot API.
const DefaultAPIURL = "https://api.telegram.org"

// Client sends messages as a bot.
type Client struct {
	// Token is the bot token.
	Token string
	// APIURL overrides DefaultAPIURL.
	APIURL string
	// HTTPClient is an optional HTTP client. Defaults to request.DefaultClient.
	HTTPClient *http.Client
}

type sendMessageRequest struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	DisableWebPreviews bool   `json:"disable_web_page_preview,omitempty"`
}

type response struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendMessage sends text to chatID as plain text.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	resp, err := request.MakeJSON[response](ctx, request.Params{
		Method:     http.MethodPost,
		URL:        cmp.Or(c.APIURL, DefaultAPIURL) + "/bot" + c.Token + "/sendMessage",
		Body:       sendMessageRequest{ChatID: chatID, Text: text, DisableWebPreviews: true},
		HTTPClient: c.HTTPClient,
		Scrubber:   strings.NewReplacer(c.Token, "[EXPUNGED]"),
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New("telegram: " + cmp.Or(resp.Description, "request failed"))
	}
	return nil
}
