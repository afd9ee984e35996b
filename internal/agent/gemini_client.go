package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"google.golang.org/genai"
)

var errMissingAPIKey = errors.New("gemini api key is empty")

// GeminiClient implements TextModel against the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	cfg    Config
	logger *slog.Logger
}

// NewGeminiClient creates a Gemini-backed text model.
func NewGeminiClient(ctx context.Context, cfg Config, logger *slog.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, errMissingAPIKey
	}
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultConfig().ModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini text model configured", "model", cfg.ModelName)

	return &GeminiClient{
		client: client,
		model:  cfg.ModelName,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (c *GeminiClient) contentConfig(system string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(c.cfg.Temperature),
		TopP:              genai.Ptr(c.cfg.TopP),
		TopK:              genai.Ptr(c.cfg.TopK),
		MaxOutputTokens:   c.cfg.MaxOutputTokens,
	}
}

// Generate returns one complete reply.
func (c *GeminiClient) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), c.contentConfig(system))
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}
	return resp.Text(), nil
}

// Stream yields reply fragments as they arrive.
func (c *GeminiClient) Stream(ctx context.Context, system, user string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		c.logger.Debug("Streaming reply from Gemini", "model", c.model, "user_length", len(user))

		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, genai.Text(user), c.contentConfig(system)) {
			if err != nil {
				yield("", fmt.Errorf("generate content stream error: %w", err))
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}
