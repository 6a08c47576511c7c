package llm

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mwalimu/mwalimubot/internal/config"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Temperature: 0.7,
		MaxTokens:   2000,
		Timeout:     time.Minute,
		MaxRetries:  1,
	}
}

func TestNewClientFromConfigProviderSelection(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.LLMConfig)
		provider string
	}{
		{"openai", func(c *config.LLMConfig) { c.OpenAIKey = "sk" }, "openai"},
		{"groq", func(c *config.LLMConfig) { c.GroqKey = "gsk" }, "groq"},
		{"openrouter", func(c *config.LLMConfig) { c.OpenRouterKey = "or" }, "openrouter"},
		{"openai wins over groq", func(c *config.LLMConfig) { c.OpenAIKey = "sk"; c.GroqKey = "gsk" }, "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testLLMConfig()
			tt.mutate(&cfg)

			client, err := NewClientFromConfig(context.Background(), cfg, slog.Default())
			if err != nil {
				t.Fatalf("NewClientFromConfig() error: %v", err)
			}

			cc, ok := client.(*compatClient)
			if !ok {
				t.Fatalf("client type = %T, want *compatClient", client)
			}
			if cc.provider != tt.provider {
				t.Errorf("provider = %q, want %q", cc.provider, tt.provider)
			}
		})
	}
}

func TestNewClientFromConfigNoKey(t *testing.T) {
	_, err := NewClientFromConfig(context.Background(), testLLMConfig(), slog.Default())
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("error = %v, want ErrNoProvider", err)
	}
}

func TestDefaultModelPerProvider(t *testing.T) {
	cfg := testLLMConfig()
	cfg.GroqKey = "gsk"

	client, err := NewClientFromConfig(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("NewClientFromConfig() error: %v", err)
	}
	if cc := client.(*compatClient); cc.model != defaultGroqModel {
		t.Errorf("model = %q, want %q", cc.model, defaultGroqModel)
	}
}

func TestConfiguredModelOverridesDefault(t *testing.T) {
	cfg := testLLMConfig()
	cfg.OpenRouterKey = "or"
	cfg.Model = "meta-llama/llama-3.1-8b-instruct"

	client, err := NewClientFromConfig(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("NewClientFromConfig() error: %v", err)
	}
	if cc := client.(*compatClient); cc.model != cfg.Model {
		t.Errorf("model = %q, want %q", cc.model, cfg.Model)
	}
}

func TestBuildParamsRejectsBadMessages(t *testing.T) {
	cc, err := newCompatClient(compatConfig{
		provider: "openai", apiKey: "sk", baseURL: openAIBaseURL, model: defaultOpenAIModel,
		llm: testLLMConfig(),
	}, slog.Default())
	if err != nil {
		t.Fatalf("newCompatClient() error: %v", err)
	}

	if _, err := cc.buildParams(nil, false); err == nil {
		t.Error("buildParams() accepted empty messages")
	}
	if _, err := cc.buildParams([]Message{{Role: "robot", Content: "hi"}}, false); err == nil {
		t.Error("buildParams() accepted unknown role")
	}
}
