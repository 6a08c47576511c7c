// Package tasks implements the scheduled maintenance tasks that run in the
// background alongside the bot.
package tasks

import (
	"log/slog"

	"github.com/mwalimu/mwalimubot/internal/config"
	"github.com/mwalimu/mwalimubot/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
