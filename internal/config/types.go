// Package config manages application configuration from environment variables,
// an optional config file, and default values.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration wraps all configuration loading and validation failures.
var ErrConfiguration = errors.New("configuration error")

var validate = validator.New()

// Config defines the application configuration. Values can be set through
// config.yaml or the environment variables the deployment documents
// (TELEGRAM_BOT_TOKEN, WEBHOOK_URL, DATABASE_URL / PG*, provider API keys).
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Tavily    TavilyConfig    `mapstructure:"tavily"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ServerConfig controls the HTTP listener that serves the root availability
// endpoint, the health check, and the Telegram webhook.
type ServerConfig struct {
	Port            string        `mapstructure:"port"             validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return ":" + c.Port
}

// TelegramConfig holds the bot token and webhook settings.
type TelegramConfig struct {
	Token          string        `mapstructure:"token"           validate:"required"`
	WebhookURL     string        `mapstructure:"webhook_url"     validate:"omitempty,url"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	TypingInterval time.Duration `mapstructure:"typing_interval" validate:"min=1s"`

	Messages MessagesConfig `mapstructure:"messages"`
}

// WebhookEndpoint returns the full public webhook URL registered with the
// Telegram Bot API.
func (c TelegramConfig) WebhookEndpoint() string {
	return c.WebhookURL + WebhookPath
}

// MessagesConfig holds user-facing bot messages.
type MessagesConfig struct {
	Welcome      string `mapstructure:"welcome"       validate:"required"`
	Farewell     string `mapstructure:"farewell"      validate:"required"`
	GeneralError string `mapstructure:"general_error" validate:"required"`
}

// DatabaseConfig describes where conversation state is persisted. A full
// DATABASE_URL takes precedence; otherwise the individual PG* variables are
// composed into one; with neither present the bot falls back to a local
// SQLite file so it can run without a managed database.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Port     string `mapstructure:"port"`

	Path string `mapstructure:"path" validate:"required"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"min=1m"`
}

// Resolve returns the database driver name and DSN derived from the
// configuration, following the precedence described on DatabaseConfig.
func (c DatabaseConfig) Resolve() (driver, dsn string) {
	if c.URL != "" {
		return DriverPostgres, c.URL
	}

	if c.Host != "" {
		port := c.Port
		if port == "" {
			port = defaultPostgresPort
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host + ":" + port,
			Path:     "/" + c.Name,
			RawQuery: "sslmode=require",
		}
		return DriverPostgres, u.String()
	}

	return DriverSQLite, c.Path
}

// LLMConfig selects and tunes the language-model provider. Which provider is
// used follows from which API key is set, checked in the order OpenAI, Groq,
// OpenRouter, Gemini.
type LLMConfig struct {
	OpenAIKey     string `mapstructure:"openai_key"`
	GroqKey       string `mapstructure:"groq_key"`
	OpenRouterKey string `mapstructure:"openrouter_key"`
	GeminiKey     string `mapstructure:"gemini_key"`

	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `mapstructure:"max_tokens"  validate:"min=1"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=10m"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`
}

// HasProviderKey reports whether at least one LLM API key is configured.
func (c LLMConfig) HasProviderKey() bool {
	return c.OpenAIKey != "" || c.GroqKey != "" || c.OpenRouterKey != "" || c.GeminiKey != ""
}

// TavilyConfig holds web-search settings. Search is disabled when the API
// key is empty. IncludeDomains restricts results to curriculum sources.
type TavilyConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"    validate:"required,url"`
	MaxResults     int           `mapstructure:"max_results" validate:"min=1,max=20"`
	Timeout        time.Duration `mapstructure:"timeout"     validate:"min=1s"`
	IncludeDomains []string      `mapstructure:"include_domains"`
}

// Enabled reports whether web search can be used.
func (c TavilyConfig) Enabled() bool {
	return c.APIKey != ""
}

// SchedulerConfig configures background maintenance tasks.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`

	ConversationRetention time.Duration `mapstructure:"conversation_retention" validate:"min=1h"`
}

// TaskConfig enables a named scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Validate applies the struct validation rules plus the cross-field rules
// the tag syntax cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if !c.LLM.HasProviderKey() {
		return fmt.Errorf("%w: at least one LLM API key is required (OPENAI_API_KEY, GROQ_API_KEY, OPENROUTER_API_KEY or GEMINI_API_KEY)", ErrConfiguration)
	}
	return nil
}
