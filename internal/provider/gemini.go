package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const generateContentMethod = "generateContent"

type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiClient connects to the Gemini API. A configured model is used as is;
// otherwise the first listed model supporting content generation is selected.
func NewGeminiClient(ctx context.Context, cfg Config, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &GeminiClient{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}

	if g.model == "" {
		capable, err := g.CapableModels(ctx)
		if err != nil {
			client.Close()
			return nil, err
		}
		g.model, err = SelectModel("", capable)
		if err != nil {
			client.Close()
			return nil, err
		}
		logger.Info("discovered Gemini model",
			zap.String("model", g.model),
			zap.Strings("candidates", capable))
	}

	return g, nil
}

// CapableModels lists the models that support content generation, in API order.
func (g *GeminiClient) CapableModels(ctx context.Context) ([]string, error) {
	var listed []*genai.ModelInfo
	it := g.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: list models: %w", ErrProviderFailed, err)
		}
		listed = append(listed, m)
	}
	return capableModelNames(listed), nil
}

// capableModelNames keeps the models whose supported methods include
// generateContent, preserving order.
func capableModelNames(listed []*genai.ModelInfo) []string {
	var names []string
	for _, m := range listed {
		if m != nil && slices.Contains(m.SupportedGenerationMethods, generateContentMethod) {
			names = append(names, m.Name)
		}
	}
	return names
}

// SelectModel applies the selection rule: the configured name wins, then the first
// capable model.
func SelectModel(configured string, capable []string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if len(capable) == 0 {
		return "", ErrNoUsableModel
	}
	return capable[0], nil
}

func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidConfig)
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	// a fresh handle per call keeps generation settings out of shared state
	model := g.client.GenerativeModel(g.model)
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProviderFailed, err)
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

func (g *GeminiClient) Name() string  { return NameGemini }
func (g *GeminiClient) Model() string { return g.model }

func (g *GeminiClient) Close() error {
	return g.client.Close()
}
