// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package producer

import (
	"cmp"
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini generates documents with the Gemini API.
type Gemini struct {
	key     string
	model   string
	timeout time.Duration
}

// NewGemini returns a Gemini producer. An empty model selects the default.
func NewGemini(key, model string) *Gemini {
	return &Gemini{key: key, model: cmp.Or(model, DefaultGeminiModel), timeout: DefaultTimeout}
}

func (p *Gemini) Name() string { return "gemini/" + p.model }

func (p *Gemini) Generate(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.key))
	if err != nil {
		return "", unavailable(p.Name(), err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.SetTemperature(DefaultTemperature)
	model.SetMaxOutputTokens(DefaultMaxTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", unavailable(p.Name(), err)
	}
	text := responseText(resp)
	if text == "" {
		return "", unavailable(p.Name(), errEmpty)
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}

var _ Producer = (*Gemini)(nil)
