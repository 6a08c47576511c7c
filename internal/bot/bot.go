// Package bot implements lifecycle management and component orchestration
// for the MwalimuBot Telegram tutor.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/mwalimu/mwalimubot/internal/config"
	"github.com/mwalimu/mwalimubot/internal/server"
)

// Bot represents the main application and manages its components' lifecycle:
// the HTTP server receiving webhook payloads, the Telegram update processor,
// and the maintenance scheduler.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	tgBot     *tgbot.Bot
	httpSrv   *server.Server
	scheduler *Scheduler
}

// NewBot creates a new instance of the bot with all required components.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	tgBot *tgbot.Bot,
	httpSrv *server.Server,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		tgBot:     tgBot,
		httpSrv:   httpSrv,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is cancelled or a
// component fails. On failure the errgroup context cancels the remaining
// components so the process shuts down as a unit.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting HTTP server...")
		if err := b.httpSrv.Run(gCtx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		b.logger.Info("HTTP server stopped.")
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting Telegram webhook processor...")

		// StartWebhook consumes the updates queued by the webhook HTTP
		// handler; it returns when gCtx is cancelled.
		b.tgBot.StartWebhook(gCtx)
		b.logger.Info("Telegram webhook processor stopped.")

		if gCtx.Err() == nil {
			return fmt.Errorf("telegram webhook processor stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
