package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mwalimu/mwalimubot/internal/config"
)

// compatClient serves every provider that speaks the OpenAI chat-completions
// protocol. OpenAI, Groq and OpenRouter differ only in base URL, key and
// default model.
type compatClient struct {
	client      openai.Client
	provider    string
	model       string
	temperature float64
	maxTokens   int
	log         *slog.Logger
}

type compatConfig struct {
	provider string
	apiKey   string
	baseURL  string
	model    string
	llm      config.LLMConfig
}

func newCompatClient(cc compatConfig, log *slog.Logger) (*compatClient, error) {
	if cc.apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", cc.provider)
	}
	if cc.model == "" {
		return nil, fmt.Errorf("%s model is required", cc.provider)
	}

	httpClient := &http.Client{Timeout: cc.llm.Timeout}

	client := openai.NewClient(
		option.WithAPIKey(cc.apiKey),
		option.WithBaseURL(cc.baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cc.llm.MaxRetries),
	)

	logger := log.With("component", "llm_client", "provider", cc.provider, "model", cc.model)
	logger.Info("LLM client initialized")

	return &compatClient{
		client:      client,
		provider:    cc.provider,
		model:       cc.model,
		temperature: cc.llm.Temperature,
		maxTokens:   cc.llm.MaxTokens,
		log:         logger,
	}, nil
}

func (c *compatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, messages, false)
}

func (c *compatClient) CompleteJSON(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, messages, true)
}

func (c *compatClient) complete(ctx context.Context, messages []Message, jsonMode bool) (string, error) {
	params, err := c.buildParams(messages, jsonMode)
	if err != nil {
		return "", err
	}

	c.log.DebugContext(ctx, "Requesting chat completion", "message_count", len(messages), "json_mode", jsonMode)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", c.provider, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *compatClient) buildParams(messages []Message, jsonMode bool) (openai.ChatCompletionNewParams, error) {
	if err := validateMessages(messages); err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case RoleUser:
			converted = append(converted, openai.UserMessage(m.Content))
		case RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    converted,
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}
	if jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	return params, nil
}
