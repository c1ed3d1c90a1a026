// Package provider defines the gateway contract to LLM translation backends.
// The pipeline is provider-agnostic: any implementation of Translator can be
// selected at job creation and is never switched mid-job.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Typed gateway errors. Transient ones (timeout, rate limit) are retried by
// the orchestrator; auth failures abort the job before it starts.
var (
	ErrTimeout         = errors.New("provider: request timed out")
	ErrRateLimited     = errors.New("provider: rate limited")
	ErrInvalidResponse = errors.New("provider: invalid response")
	ErrAuthFailed      = errors.New("provider: authentication failed")
)

// Request carries one translation prompt. SystemPrompt holds the task
// instructions including the preceding-context block; UserMessage holds the
// placeholder-encoded text to translate.
type Request struct {
	SystemPrompt string
	UserMessage  string
}

// Translator is the gateway capability interface.
type Translator interface {
	Name() string
	Translate(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a provider backend.
type Config struct {
	Provider    string // openai | openrouter | gemini | ollama
	APIKey      string
	APIURL      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64

	// Optional attribution headers (OpenRouter).
	SiteURL string
	AppName string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8000
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.3
	}
	return c
}

// New builds the configured provider, wrapped with a rate limiter when one
// is configured.
func New(cfg Config) (Translator, error) {
	cfg = cfg.withDefaults()

	var (
		t   Translator
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai", "openrouter", "gemini", "":
		// All three speak the OpenAI chat-completions dialect; Gemini via its
		// OpenAI-compatible endpoint.
		t, err = newOpenAIClient(cfg)
	case "ollama":
		t, err = newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		t = withRateLimit(t, cfg.RateLimit)
	}
	return t, nil
}
