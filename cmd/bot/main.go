// Package main contains the entrypoint for the MwalimuBot webhook service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/mwalimu/mwalimubot/internal/agent"
	"github.com/mwalimu/mwalimubot/internal/bot"
	"github.com/mwalimu/mwalimubot/internal/bot/handlers"
	"github.com/mwalimu/mwalimubot/internal/bot/tasks"
	"github.com/mwalimu/mwalimubot/internal/config"
	"github.com/mwalimu/mwalimubot/internal/database"
	"github.com/mwalimu/mwalimubot/internal/llm"
	"github.com/mwalimu/mwalimubot/internal/logger"
	"github.com/mwalimu/mwalimubot/internal/server"
	"github.com/mwalimu/mwalimubot/internal/tavily"
	"github.com/mwalimu/mwalimubot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components (config, logger, database, LLM
// client, search client, agents, Telegram bot, HTTP server, scheduler),
// starts the orchestrator, and returns an exit code.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, driver, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, driver, log)

	llmClient, err := llm.NewClientFromConfig(ctx, cfg.LLM, log)
	if err != nil {
		log.Error("Failed to initialize LLM client", "error", err)
		return 1
	}

	var searcher tavily.Searcher
	if cfg.Tavily.Enabled() {
		client, err := tavily.NewClient(tavily.Config{
			APIKey:         cfg.Tavily.APIKey,
			BaseURL:        cfg.Tavily.BaseURL,
			MaxResults:     cfg.Tavily.MaxResults,
			IncludeDomains: cfg.Tavily.IncludeDomains,
		}, &http.Client{Timeout: cfg.Tavily.Timeout}, log)
		if err != nil {
			log.Error("Failed to initialize search client", "error", err)
			return 1
		}
		searcher = client
	} else {
		log.Warn("TAVILY_API_KEY not set, web search disabled")
	}

	agents := agent.NewAgents(llmClient, searcher, cfg.Telegram.Messages.GeneralError, log)
	conversations := agent.NewService(store, agents, cfg.Telegram.Messages.GeneralError, log)

	hDeps := handlers.HandlerDeps{
		Logger:        log,
		Config:        cfg,
		Conversations: conversations,
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.UpdateMiddleware(log)),
		tgbot.WithDefaultHandler(handlers.NewChatHandler(hDeps)),
	}
	if cfg.Telegram.WebhookSecret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(cfg.Telegram.WebhookSecret))
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	if cfg.Telegram.WebhookURL != "" {
		if err := telegram.RegisterWebhook(ctx, tg, cfg.Telegram, log); err != nil {
			log.Error("Failed to register webhook", "error", err)
			return 1
		}
	} else {
		log.Warn("WEBHOOK_URL not set, assuming the webhook was registered externally")
	}

	httpSrv := server.New(cfg.Server, store, tg.WebhookHandler(), log)

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, tg, httpSrv, sched)

	log.Info("Starting bot...", "addr", cfg.Server.Addr(), "webhook_path", config.WebhookPath)
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
