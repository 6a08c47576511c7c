package handlers

import (
	"context"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewExitHandler returns a handler for the /exit command. It deletes the
// stored conversation state and says goodbye.
func NewExitHandler(deps HandlerDeps) bot.HandlerFunc {
	return exitHandler{deps}.Handle
}

type exitHandler struct {
	deps HandlerDeps
}

func (h exitHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "exit")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Exit handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /exit command", "chat_id", chatID, "user_id", update.Message.From.ID)

	if err := h.deps.Conversations.EndConversation(ctx, strconv.FormatInt(chatID, 10)); err != nil {
		log.ErrorContext(ctx, "Failed to end conversation", "error", err, "chat_id", chatID)
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: h.deps.Config.Telegram.Messages.Farewell}); err != nil {
		log.ErrorContext(ctx, "Failed to send farewell message", "error", err, "chat_id", chatID)
	}
}
