// Package telegram handles the Telegram bot instance, webhook registration,
// and handler setup.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"

	"github.com/mwalimu/mwalimubot/internal/config"
)

// NewTelegramBot creates a new Telegram bot instance using the
// go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", token[:8]+"...")
	return b, nil
}

// RegisterWebhook tells the Telegram Bot API to push updates to the
// configured webhook URL. Pending updates accumulated while the bot was down
// are dropped so students never get stale replies.
func RegisterWebhook(ctx context.Context, b *bot.Bot, cfg config.TelegramConfig, logger *slog.Logger) error {
	if cfg.WebhookURL == "" {
		return fmt.Errorf("webhook URL cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	endpoint := cfg.WebhookEndpoint()
	ok, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:                endpoint,
		SecretToken:        cfg.WebhookSecret,
		DropPendingUpdates: true,
		AllowedUpdates:     []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	if !ok {
		return fmt.Errorf("telegram rejected webhook registration for %s", endpoint)
	}

	log.Info("Webhook registered", "url", endpoint)
	return nil
}
