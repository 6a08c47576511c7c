package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwalimu/mwalimubot/internal/database"
)

// Service runs the load-state / run-graph / persist-state round trip for one
// incoming student message.
type Service struct {
	store           database.Store
	graph           *Graph
	fallbackMessage string
	log             *slog.Logger
}

// NewService creates the conversation service around a built graph.
func NewService(store database.Store, agents *Agents, fallbackMessage string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:           store,
		graph:           agents.BuildGraph(),
		fallbackMessage: fallbackMessage,
		log:             log.With("component", "conversation_service"),
	}
}

// HandleMessage processes one student message and returns the reply text.
// State is loaded by chat ID (fresh when absent or unreadable), the graph is
// run, and the resulting state is persisted before the reply is returned.
func (s *Service) HandleMessage(ctx context.Context, chatID, userName, text string) (string, error) {
	state, err := s.loadState(ctx, chatID)
	if err != nil {
		return "", err
	}

	if state == nil {
		state = NewState(chatID, userName, text)
	} else {
		state.BeginTurn(text)
	}
	if userName != "" {
		state.UserName = userName
	}

	start := time.Now()
	if err := s.graph.Run(ctx, state); err != nil {
		s.log.ErrorContext(ctx, "Graph run failed", "chat_id", chatID, "error", err)
		state.ErrorMessage = err.Error()
	}
	s.log.InfoContext(ctx, "Graph run finished",
		"chat_id", chatID,
		"duration", time.Since(start),
		"node_history_len", len(state.NodeHistory),
	)

	reply := state.MessageToStudent
	if reply == "" {
		reply = s.fallbackMessage
		state.MessageToStudent = reply
		state.ConversationHistory = append(state.ConversationHistory, ChatMessage{Role: RoleAssistant, Content: reply})
	}

	if err := s.persistState(ctx, state); err != nil {
		// The student still gets a reply; losing one turn of state is the
		// lesser failure.
		s.log.ErrorContext(ctx, "Failed to persist conversation state", "chat_id", chatID, "error", err)
	}

	return reply, nil
}

// StartConversation resets the chat to a fresh state, as done for /start.
func (s *Service) StartConversation(ctx context.Context, chatID, userName string) error {
	state := NewState(chatID, userName, "/start")
	state.CurrentStep = NodeRouter
	return s.persistState(ctx, state)
}

// EndConversation removes the persisted state, as done for /exit.
func (s *Service) EndConversation(ctx context.Context, chatID string) error {
	return s.store.DeleteConversation(ctx, chatID)
}

func (s *Service) loadState(ctx context.Context, chatID string) (*State, error) {
	conv, err := s.store.GetConversation(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil {
		return nil, nil
	}

	state, err := UnmarshalState(conv.State)
	if err != nil {
		// Unreadable state starts the conversation over rather than wedging
		// the chat permanently.
		s.log.WarnContext(ctx, "Discarding unreadable conversation state", "chat_id", chatID, "error", err)
		return nil, nil
	}
	return state, nil
}

func (s *Service) persistState(ctx context.Context, state *State) error {
	data, err := state.Marshal()
	if err != nil {
		return err
	}

	return s.store.SaveConversation(ctx, &database.Conversation{
		ChatID:    state.ChatID,
		UserID:    state.UserID,
		Platform:  state.Platform,
		UserInput: state.UserInput,
		State:     data,
	})
}
