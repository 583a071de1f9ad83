// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package producer asks a generative text API for the day's page.
package producer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Defaults for generation requests.
const (
	DefaultOpenAIModel = "gpt-4o"
	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultMaxTokens   = 6000
	DefaultTemperature = 0.2
	// DefaultTimeout bounds a single generation request.
	DefaultTimeout = 5 * time.Minute
)

// Providers accepted by [New].
const (
	ProviderAuto   = "auto"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var (
	// ErrUnavailable is wrapped by every error returned from
	// [Producer.Generate]: no usable content was produced.
	ErrUnavailable = errors.New("producer unavailable")
	// ErrNoCredential is returned by New when no API key is configured for
	// the requested provider.
	ErrNoCredential = errors.New("no API key configured")
)

// Producer generates a document from a system and a user prompt.
type Producer interface {
	// Generate returns the generated text, or an error wrapping
	// ErrUnavailable. An empty reply is an error.
	Generate(ctx context.Context, system, user string) (string, error)
	// Name identifies the producer in logs.
	Name() string
}

// Func adapts a function to the [Producer] interface.
type Func func(ctx context.Context, system, user string) (string, error)

func (f Func) Generate(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

func (f Func) Name() string { return "func" }

// Config selects and configures a producer.
type Config struct {
	// Provider is one of ProviderAuto (the default), ProviderOpenAI or
	// ProviderGemini. Auto picks OpenAI if its key is set, then Gemini.
	Provider string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	GeminiKey   string
	GeminiModel string

	// HTTPClient is used for OpenAI requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// New returns the producer described by c.
func New(c Config) (Producer, error) {
	provider := c.Provider
	if provider == "" || provider == ProviderAuto {
		switch {
		case c.OpenAIKey != "":
			provider = ProviderOpenAI
		case c.GeminiKey != "":
			provider = ProviderGemini
		default:
			return nil, ErrNoCredential
		}
	}

	switch provider {
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrNoCredential)
		}
		return NewOpenAI(c.OpenAIKey, c.OpenAIModel, c.OpenAIBaseURL, c.HTTPClient), nil
	case ProviderGemini:
		if c.GeminiKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrNoCredential)
		}
		return NewGemini(c.GeminiKey, c.GeminiModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q, want %q, %q or %q", c.Provider, ProviderAuto, ProviderOpenAI, ProviderGemini)
	}
}

func unavailable(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
}

var errEmpty = errors.New("empty response")
