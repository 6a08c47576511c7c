package handlers

import (
	"log/slog"

	"github.com/mwalimu/mwalimubot/internal/agent"
	"github.com/mwalimu/mwalimubot/internal/config"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger        *slog.Logger
	Config        *config.Config
	Conversations *agent.Service
}
