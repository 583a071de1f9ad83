// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package producer

import (
	"cmp"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAI generates documents with the OpenAI chat completions API, or any API
// compatible with it.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI returns an OpenAI producer. Empty model and baseURL select the
// defaults, and a nil httpc selects the client library's one. Each request is
// bounded by DefaultTimeout.
func NewOpenAI(key, model, baseURL string, httpc *http.Client) *OpenAI {
	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpc != nil {
		cfg.HTTPClient = httpc
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		model:   cmp.Or(model, DefaultOpenAIModel),
		timeout: DefaultTimeout,
	}
}

func (p *OpenAI) Name() string { return "openai/" + p.model }

func (p *OpenAI) Generate(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	})
	if err != nil {
		return "", unavailable(p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", unavailable(p.Name(), errEmpty)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", unavailable(p.Name(), errEmpty)
	}
	return text, nil
}

var _ Producer = (*OpenAI)(nil)
