package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load builds the configuration in three layers: default values, an optional
// config.yaml in the working directory, and finally the environment variables
// documented for deployment. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
		// No config file is fine; env and defaults carry the deployment.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindEnv maps the deployment environment variables onto config keys. These
// are the exact names the hosting platform and the Telegram/database/LLM
// provider dashboards hand out, so no prefix scheme is applied.
func bindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"telegram.token":          "TELEGRAM_BOT_TOKEN",
		"telegram.webhook_url":    "WEBHOOK_URL",
		"telegram.webhook_secret": "TELEGRAM_WEBHOOK_SECRET",

		"server.port": "PORT",

		"database.url":      "DATABASE_URL",
		"database.host":     "PGHOST",
		"database.name":     "PGDATABASE",
		"database.user":     "PGUSER",
		"database.password": "PGPASSWORD",
		"database.port":     "PGPORT",

		"llm.openai_key":     "OPENAI_API_KEY",
		"llm.groq_key":       "GROQ_API_KEY",
		"llm.openrouter_key": "OPENROUTER_API_KEY",
		"llm.gemini_key":     "GEMINI_API_KEY",

		"tavily.api_key": "TAVILY_API_KEY",

		"log.level": "LOG_LEVEL",
	}

	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)

	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultReadTimeout)
	v.SetDefault("server.write_timeout", defaultWriteTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	v.SetDefault("telegram.typing_interval", defaultTypingInterval)
	v.SetDefault("telegram.messages.welcome", defaultWelcomeMessage)
	v.SetDefault("telegram.messages.farewell", defaultFarewellMessage)
	v.SetDefault("telegram.messages.general_error", defaultGeneralErrorMessage)

	v.SetDefault("database.path", defaultDBPath)
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", defaultConnMaxLifetime)

	// llm.model stays empty by default; each provider has its own default model.
	v.SetDefault("llm.temperature", defaultLLMTemperature)
	v.SetDefault("llm.max_tokens", defaultLLMMaxTokens)
	v.SetDefault("llm.timeout", defaultLLMTimeout)
	v.SetDefault("llm.max_retries", defaultLLMMaxRetries)

	v.SetDefault("tavily.base_url", defaultTavilyBaseURL)
	v.SetDefault("tavily.max_results", defaultTavilyMaxResults)
	v.SetDefault("tavily.timeout", defaultTavilyTimeout)
	v.SetDefault("tavily.include_domains", defaultTavilyIncludeDomains)

	v.SetDefault("scheduler.conversation_retention", defaultConversationRetention)
	v.SetDefault("scheduler.tasks", map[string]TaskConfig{
		"conversation_cleanup": {Enabled: true, Schedule: "0 0 4 * * *"},
		"db_maintenance":       {Enabled: true, Schedule: "0 30 4 * * 0"},
	})
}
