package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/mwalimu/mwalimubot/internal/agent"
	"github.com/mwalimu/mwalimubot/internal/config"
	"github.com/mwalimu/mwalimubot/internal/database"
	"github.com/mwalimu/mwalimubot/internal/llm"
)

// recordingStore flags any data access, so tests can assert a handler bailed
// out before touching the conversation service.
type recordingStore struct {
	called bool
}

func (r *recordingStore) Ping(context.Context) error { r.called = true; return nil }

func (r *recordingStore) SaveConversation(context.Context, *database.Conversation) error {
	r.called = true
	return nil
}

func (r *recordingStore) GetConversation(context.Context, string) (*database.Conversation, error) {
	r.called = true
	return nil, nil
}

func (r *recordingStore) DeleteConversation(context.Context, string) error {
	r.called = true
	return nil
}

func (r *recordingStore) DeleteStaleConversations(context.Context, time.Time) (int64, error) {
	r.called = true
	return 0, nil
}

func (r *recordingStore) RunMaintenance(context.Context) error { r.called = true; return nil }

// unusedLLM fails the test if any handler reaches the model.
type unusedLLM struct{ t *testing.T }

func (u unusedLLM) Complete(context.Context, []llm.Message) (string, error) {
	u.t.Error("LLM called for an update that should be ignored")
	return "", errors.New("unexpected call")
}

func (u unusedLLM) CompleteJSON(ctx context.Context, messages []llm.Message) (string, error) {
	return u.Complete(ctx, messages)
}

func newTestDeps(t *testing.T, store database.Store) HandlerDeps {
	t.Helper()
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	agents := agent.NewAgents(unusedLLM{t}, nil, "Samahani, something went wrong.", log)

	cfg := &config.Config{}
	cfg.Telegram.TypingInterval = time.Second
	cfg.Telegram.Messages = config.MessagesConfig{
		Welcome:      "Hello {name}!",
		Farewell:     "Kwaheri!",
		GeneralError: "Samahani, something went wrong.",
	}

	return HandlerDeps{
		Logger:        log,
		Config:        cfg,
		Conversations: agent.NewService(store, agents, cfg.Telegram.Messages.GeneralError, log),
	}
}

func validFrom() *models.User {
	return &models.User{ID: 7, FirstName: "Amina"}
}

func TestHandlersIgnoreMalformedUpdates(t *testing.T) {
	tests := []struct {
		name   string
		update *models.Update
	}{
		{"nil message", &models.Update{ID: 1}},
		{"nil sender", &models.Update{ID: 2, Message: &models.Message{Text: "Hi", Chat: models.Chat{ID: 42}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			deps := newTestDeps(t, store)
			ctx := context.Background()

			NewStartHandler(deps)(ctx, nil, tt.update)
			NewExitHandler(deps)(ctx, nil, tt.update)
			NewChatHandler(deps)(ctx, nil, tt.update)

			if store.called {
				t.Error("conversation store accessed for a malformed update")
			}
		})
	}
}

func TestChatHandlerIgnoresNonChatText(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty text", ""},
		{"whitespace only", "   "},
		{"command", "/start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			deps := newTestDeps(t, store)
			update := &models.Update{
				ID:      3,
				Message: &models.Message{Text: tt.text, Chat: models.Chat{ID: 42}, From: validFrom()},
			}

			NewChatHandler(deps)(context.Background(), nil, update)

			if store.called {
				t.Errorf("conversation store accessed for text %q", tt.text)
			}
		})
	}
}

func TestWelcomeText(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"placeholder filled", "Hello {name}! Karibu!", "Hello Amina! Karibu!"},
		{"no placeholder untouched", "Karibu sana!", "Karibu sana!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := welcomeText(tt.template, "Amina"); got != tt.want {
				t.Errorf("welcomeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		name string
		from *models.User
		want string
	}{
		{"first name", &models.User{FirstName: "Amina", Username: "amina254"}, "Amina"},
		{"username fallback", &models.User{Username: "amina254"}, "amina254"},
		{"generic fallback", &models.User{}, "rafiki"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := senderName(tt.from); got != tt.want {
				t.Errorf("senderName() = %q, want %q", got, tt.want)
			}
		})
	}
}
