package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command. It greets the
// student and opens a fresh conversation so the next message starts with the
// routing agent.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	userName := senderName(update.Message.From)
	log.InfoContext(ctx, "Handling /start command", "chat_id", chatID, "user_id", update.Message.From.ID)

	if err := h.deps.Conversations.StartConversation(ctx, strconv.FormatInt(chatID, 10), userName); err != nil {
		log.ErrorContext(ctx, "Failed to start conversation", "error", err, "chat_id", chatID)
	}

	welcome := welcomeText(h.deps.Config.Telegram.Messages.Welcome, userName)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: welcome}); err != nil {
		log.ErrorContext(ctx, "Failed to send welcome message", "error", err, "chat_id", chatID)
	}
}

// welcomeText fills the student's name into the welcome template. A template
// without the placeholder is sent as-is.
func welcomeText(template, name string) string {
	return strings.ReplaceAll(template, "{name}", name)
}

// senderName picks the friendliest available name for the student.
func senderName(from *models.User) string {
	if from.FirstName != "" {
		return from.FirstName
	}
	if from.Username != "" {
		return from.Username
	}
	return "rafiki"
}
