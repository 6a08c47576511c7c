package config

import "time"

// WebhookPath is the HTTP path Telegram pushes update payloads to.
const WebhookPath = "/telegram/telegram-webhook"

// Database driver names as registered with database/sql.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const defaultPostgresPort = "5432"

// Default values for optional configuration parameters.
const (
	defaultLogLevel  = "info"
	defaultLogFormat = "json"

	defaultServerPort      = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 2 * time.Minute
	defaultShutdownTimeout = 15 * time.Second

	defaultTypingInterval = 4 * time.Second

	defaultDBPath          = "mwalimubot.db"
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute

	defaultLLMTemperature = 0.7
	defaultLLMMaxTokens   = 2000
	defaultLLMTimeout     = 2 * time.Minute
	defaultLLMMaxRetries  = 2

	defaultTavilyBaseURL    = "https://api.tavily.com"
	defaultTavilyMaxResults = 1
	defaultTavilyTimeout    = 30 * time.Second

	defaultConversationRetention = 30 * 24 * time.Hour
)

// defaultTavilyIncludeDomains keeps web searches on the learning platform
// the tutoring content is sourced from.
var defaultTavilyIncludeDomains = []string{"https://lms.kec.ac.ke/"}

// Default user-facing messages. The welcome text mirrors the /start greeting
// students receive; "{name}" is replaced with the student's first name.
const (
	defaultWelcomeMessage = "\U0001F44B Hello {name}! Karibu sana! I am MwalimuBot, your personal tutor. " +
		"I'm here to help you learn and practice various subjects.\n\n" +
		"What would you like to learn today?"
	defaultFarewellMessage     = "Kwaheri! Thank you for using MwalimuBot! Have a great day!"
	defaultGeneralErrorMessage = "Samahani, something went wrong on my side. Please try again in a moment."
)
