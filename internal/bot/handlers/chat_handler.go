package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const chatProcessingTimeout = 2 * time.Minute

// NewChatHandler returns the default handler that runs every free-form
// message through the tutoring agents and replies with the result.
func NewChatHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps}.Handle
}

type chatHandler struct {
	deps HandlerDeps
}

func (h chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "chat")

	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		log.DebugContext(ctx, "Ignoring update with nil message, empty text, or nil sender", "update_id", update.ID)
		return
	}
	// Commands are routed to their own handlers.
	if strings.HasPrefix(msg.Text, "/") {
		return
	}

	chatID := msg.Chat.ID
	userName := senderName(msg.From)
	log.InfoContext(ctx, "Handling chat message", "chat_id", chatID, "user_id", msg.From.ID)

	runCtx, cancel := context.WithTimeout(ctx, chatProcessingTimeout)
	defer cancel()

	stopTyping := h.startTyping(runCtx, b, chatID)
	reply, err := h.deps.Conversations.HandleMessage(runCtx, strconv.FormatInt(chatID, 10), userName, msg.Text)
	stopTyping()

	if err != nil {
		log.ErrorContext(ctx, "Failed to process chat message", "error", err, "chat_id", chatID)
		reply = h.deps.Config.Telegram.Messages.GeneralError
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
	}
}

// startTyping keeps the typing indicator alive while the agents work.
// Telegram expires a chat action after a few seconds, so it is re-sent on an
// interval until the returned stop function is called.
func (h chatHandler) startTyping(ctx context.Context, b *bot.Bot, chatID int64) func() {
	typingCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(h.deps.Config.Telegram.TypingInterval)
		defer ticker.Stop()

		_, _ = b.SendChatAction(typingCtx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})
		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				_, _ = b.SendChatAction(typingCtx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})
			}
		}
	}()

	return cancel
}
