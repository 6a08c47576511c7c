package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/mwalimu/mwalimubot/internal/config"
)

// geminiClient serves the Google Gemini API through the GenAI SDK.
type geminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	maxRetries  int
	retryDelay  time.Duration
	log         *slog.Logger
}

func newGeminiClient(ctx context.Context, cfg config.LLMConfig, model string, log *slog.Logger) (*geminiClient, error) {
	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "llm_client", "provider", "gemini", "model", model)
	logger.Info("LLM client initialized")

	return &geminiClient{
		client:      gi,
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		maxRetries:  cfg.MaxRetries,
		retryDelay:  2 * time.Second,
		log:         logger,
	}, nil
}

func (c *geminiClient) Complete(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, messages, false)
}

func (c *geminiClient) CompleteJSON(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, messages, true)
}

func (c *geminiClient) complete(ctx context.Context, messages []Message, jsonMode bool) (string, error) {
	if err := validateMessages(messages); err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: &c.temperature,
	}
	if c.maxTokens > 0 {
		cfg.MaxOutputTokens = c.maxTokens
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}

	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("at least one user or assistant message is required")
	}

	resp, err := c.generateWithRetries(ctx, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (c *geminiClient) generateWithRetries(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		if i < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}

	return nil, err
}
