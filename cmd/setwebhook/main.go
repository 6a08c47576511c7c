// Package main registers the Telegram webhook for a deployment. Run it once
// after the service URL is known, with TELEGRAM_BOT_TOKEN and WEBHOOK_URL set
// to the same values the bot runs with.
package main

import (
	"context"
	"os"
	"time"

	"github.com/mwalimu/mwalimubot/internal/config"
	"github.com/mwalimu/mwalimubot/internal/logger"
	"github.com/mwalimu/mwalimubot/internal/telegram"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.New("info", "text")

	cfg := config.TelegramConfig{
		Token:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		WebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
	}
	if cfg.Token == "" {
		log.Error("TELEGRAM_BOT_TOKEN is not set")
		return 1
	}
	if cfg.WebhookURL == "" {
		log.Error("WEBHOOK_URL is not set")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b, err := telegram.NewTelegramBot(cfg.Token, log)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	if err := telegram.RegisterWebhook(ctx, b, cfg, log); err != nil {
		log.Error("Failed to register webhook", "error", err)
		return 1
	}

	info, err := b.GetWebhookInfo(ctx)
	if err != nil {
		log.Error("Failed to fetch webhook info", "error", err)
		return 1
	}

	attrs := []any{
		"url", info.URL,
		"pending_updates", info.PendingUpdateCount,
	}
	if info.LastErrorMessage != "" {
		attrs = append(attrs,
			"last_error", info.LastErrorMessage,
			"last_error_at", time.Unix(int64(info.LastErrorDate), 0),
		)
	}
	log.Info("Webhook registered", attrs...)
	return 0
}
