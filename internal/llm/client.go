// Package llm provides provider-neutral access to chat-completion APIs.
// OpenAI, Groq and OpenRouter are served through their OpenAI-compatible
// endpoints; Gemini through the Google GenAI SDK. The provider is selected
// by whichever API key is configured.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mwalimu/mwalimubot/internal/config"
)

// Message roles accepted by Complete.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoProvider is returned when no LLM API key is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// ErrEmptyCompletion is returned when a provider answers with no content.
var ErrEmptyCompletion = errors.New("provider returned an empty completion")

// Message is a single chat message sent to the model.
type Message struct {
	Role    string
	Content string
}

// Client is the interface the agent graph depends on.
type Client interface {
	// Complete returns a plain-text completion for the conversation.
	Complete(ctx context.Context, messages []Message) (string, error)

	// CompleteJSON returns a completion constrained to a single JSON object,
	// used for structured agent handoffs.
	CompleteJSON(ctx context.Context, messages []Message) (string, error)
}

// Provider base URLs for the OpenAI-compatible endpoints.
const (
	openAIBaseURL     = "https://api.openai.com/v1"
	groqBaseURL       = "https://api.groq.com/openai/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// Per-provider default models, used when llm.model is not set.
const (
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultGroqModel       = "llama-3.3-70b-versatile"
	defaultOpenRouterModel = "tngtech/deepseek-r1t-chimera:free"
	defaultGeminiModel     = "gemini-2.0-flash"
)

// NewClientFromConfig picks a provider from the configured API keys, checked
// in the order OpenAI, Groq, OpenRouter, Gemini.
func NewClientFromConfig(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) (Client, error) {
	if log == nil {
		log = slog.Default()
	}

	switch {
	case cfg.OpenAIKey != "":
		return newCompatClient(compatConfig{
			provider: "openai",
			apiKey:   cfg.OpenAIKey,
			baseURL:  openAIBaseURL,
			model:    modelOrDefault(cfg.Model, defaultOpenAIModel),
			llm:      cfg,
		}, log)
	case cfg.GroqKey != "":
		return newCompatClient(compatConfig{
			provider: "groq",
			apiKey:   cfg.GroqKey,
			baseURL:  groqBaseURL,
			model:    modelOrDefault(cfg.Model, defaultGroqModel),
			llm:      cfg,
		}, log)
	case cfg.OpenRouterKey != "":
		return newCompatClient(compatConfig{
			provider: "openrouter",
			apiKey:   cfg.OpenRouterKey,
			baseURL:  openRouterBaseURL,
			model:    modelOrDefault(cfg.Model, defaultOpenRouterModel),
			llm:      cfg,
		}, log)
	case cfg.GeminiKey != "":
		return newGeminiClient(ctx, cfg, modelOrDefault(cfg.Model, defaultGeminiModel), log)
	default:
		return nil, ErrNoProvider
	}
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

func validateMessages(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages are required")
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return nil
}
