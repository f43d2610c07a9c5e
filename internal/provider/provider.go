// Package provider wraps the generative-text APIs the simulator can talk to.
// Implementations hold no per-request state and are safe for concurrent use.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	NameGemini = "gemini"
	NameOpenAI = "openai"
)

var (
	ErrProviderFailed = errors.New("provider request failed")
	ErrEmptyResponse  = fmt.Errorf("%w: no content generated", ErrProviderFailed)
	ErrInvalidConfig  = errors.New("invalid provider configuration")
	ErrNoUsableModel  = errors.New("no model supporting content generation")
)

// Provider generates text from a prompt.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
	Model() string
	Close() error
}

// Request is one generation call. Zero values leave the provider default in place.
type Request struct {
	Prompt          string
	Temperature     float32
	MaxOutputTokens int
}

type Config struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// New builds the provider named in cfg. For Gemini without a configured model this
// queries the model listing, so it needs network access.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Provider, error) {
	switch cfg.Name {
	case NameGemini:
		return NewGeminiClient(ctx, cfg, logger)
	case NameOpenAI:
		return NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Name)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
