package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mwalimu/mwalimubot/internal/database"
)

// memoryStore is an in-memory database.Store for service tests.
type memoryStore struct {
	conversations map[string]*database.Conversation
	saveErr       error
	getErr        error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{conversations: make(map[string]*database.Conversation)}
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) SaveConversation(_ context.Context, conv *database.Conversation) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	saved := *conv
	m.conversations[conv.ChatID] = &saved
	return nil
}

func (m *memoryStore) GetConversation(_ context.Context, chatID string) (*database.Conversation, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.conversations[chatID], nil
}

func (m *memoryStore) DeleteConversation(_ context.Context, chatID string) error {
	delete(m.conversations, chatID)
	return nil
}

func (m *memoryStore) DeleteStaleConversations(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (m *memoryStore) RunMaintenance(context.Context) error { return nil }

func newTestService(t *testing.T, mock *scriptedLLM, store database.Store) *Service {
	t.Helper()
	agents := NewAgents(mock, &fakeSearcher{}, testFallback, quietLogger())
	return NewService(store, agents, testFallback, quietLogger())
}

func TestHandleMessagePersistsState(t *testing.T) {
	store := newMemoryStore()
	mock := &scriptedLLM{responses: []string{respondJSON("Jambo Amina!", NodeRouter)}}
	svc := newTestService(t, mock, store)

	reply, err := svc.HandleMessage(context.Background(), "42", "Amina", "Hi")
	if err != nil {
		t.Fatalf("HandleMessage() error: %v", err)
	}
	if reply != "Jambo Amina!" {
		t.Errorf("reply = %q", reply)
	}

	conv := store.conversations["42"]
	if conv == nil {
		t.Fatal("conversation not persisted")
	}
	state, err := UnmarshalState(conv.State)
	if err != nil {
		t.Fatalf("persisted state unreadable: %v", err)
	}
	if len(state.ConversationHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(state.ConversationHistory))
	}
	if state.UserName != "Amina" {
		t.Errorf("UserName = %q", state.UserName)
	}
}

func TestHandleMessageContinuesConversation(t *testing.T) {
	store := newMemoryStore()
	mock := &scriptedLLM{responses: []string{
		respondJSON("What grade are you in?", NodeRouter),
		respondJSON("Great, grade 7 it is!", NodeTutor),
	}}
	svc := newTestService(t, mock, store)

	if _, err := svc.HandleMessage(context.Background(), "42", "Amina", "Hi"); err != nil {
		t.Fatalf("first turn error: %v", err)
	}
	if _, err := svc.HandleMessage(context.Background(), "42", "Amina", "Grade 7"); err != nil {
		t.Fatalf("second turn error: %v", err)
	}

	state, err := UnmarshalState(store.conversations["42"].State)
	if err != nil {
		t.Fatalf("persisted state unreadable: %v", err)
	}
	// 2 turns, each a human message plus an assistant reply.
	if len(state.ConversationHistory) != 4 {
		t.Errorf("history length = %d, want 4", len(state.ConversationHistory))
	}
	if state.ConversationHistory[2].Content != "Grade 7" {
		t.Errorf("second turn input = %q", state.ConversationHistory[2].Content)
	}
}

func TestHandleMessageRepliesDespiteSaveFailure(t *testing.T) {
	store := newMemoryStore()
	store.saveErr = errors.New("connection reset")
	mock := &scriptedLLM{responses: []string{respondJSON("Jambo!", NodeRouter)}}
	svc := newTestService(t, mock, store)

	reply, err := svc.HandleMessage(context.Background(), "42", "Amina", "Hi")
	if err != nil {
		t.Fatalf("HandleMessage() error: %v", err)
	}
	if reply != "Jambo!" {
		t.Errorf("reply = %q", reply)
	}
}

func TestHandleMessageDiscardsCorruptState(t *testing.T) {
	store := newMemoryStore()
	store.conversations["42"] = &database.Conversation{ChatID: "42", State: []byte("{not json")}
	mock := &scriptedLLM{responses: []string{respondJSON("Jambo!", NodeRouter)}}
	svc := newTestService(t, mock, store)

	reply, err := svc.HandleMessage(context.Background(), "42", "Amina", "Hi")
	if err != nil {
		t.Fatalf("HandleMessage() error: %v", err)
	}
	if reply != "Jambo!" {
		t.Errorf("reply = %q", reply)
	}

	state, err := UnmarshalState(store.conversations["42"].State)
	if err != nil {
		t.Fatalf("persisted state unreadable: %v", err)
	}
	if len(state.ConversationHistory) != 2 {
		t.Errorf("history length = %d, want a fresh conversation", len(state.ConversationHistory))
	}
}

func TestHandleMessageGetFailure(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	svc := newTestService(t, &scriptedLLM{}, store)

	if _, err := svc.HandleMessage(context.Background(), "42", "Amina", "Hi"); err == nil {
		t.Fatal("HandleMessage() succeeded with a failing store")
	}
}

func TestStartAndEndConversation(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, &scriptedLLM{}, store)

	if err := svc.StartConversation(context.Background(), "42", "Amina"); err != nil {
		t.Fatalf("StartConversation() error: %v", err)
	}
	if store.conversations["42"] == nil {
		t.Fatal("conversation not created")
	}

	if err := svc.EndConversation(context.Background(), "42"); err != nil {
		t.Fatalf("EndConversation() error: %v", err)
	}
	if store.conversations["42"] != nil {
		t.Error("conversation not removed")
	}
}
