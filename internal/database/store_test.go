package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mwalimu/mwalimubot/internal/config"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	if err := ApplyMigrations(db.DB, config.DriverSQLite); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	return NewStore(db, config.DriverSQLite, nil)
}

func testConversation(chatID string) *Conversation {
	return &Conversation{
		ChatID:    chatID,
		UserID:    chatID,
		Platform:  "telegram",
		UserInput: "What is photosynthesis?",
		State:     []byte(`{"user_input":"What is photosynthesis?"}`),
	}
}

func TestSaveAndGetConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := testConversation("12345")
	if err := store.SaveConversation(ctx, conv); err != nil {
		t.Fatalf("SaveConversation() error: %v", err)
	}

	loaded, err := store.GetConversation(ctx, "12345")
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if loaded == nil {
		t.Fatal("GetConversation() returned nil for an existing conversation")
	}
	if loaded.UserInput != conv.UserInput {
		t.Errorf("UserInput = %q, want %q", loaded.UserInput, conv.UserInput)
	}
	if string(loaded.State) != string(conv.State) {
		t.Errorf("State = %s, want %s", loaded.State, conv.State)
	}
}

func TestSaveConversationUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testConversation("99")
	if err := store.SaveConversation(ctx, first); err != nil {
		t.Fatalf("first SaveConversation() error: %v", err)
	}

	second := testConversation("99")
	second.UserInput = "Explain fractions"
	second.State = []byte(`{"user_input":"Explain fractions"}`)
	if err := store.SaveConversation(ctx, second); err != nil {
		t.Fatalf("second SaveConversation() error: %v", err)
	}

	loaded, err := store.GetConversation(ctx, "99")
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if loaded.UserInput != "Explain fractions" {
		t.Errorf("UserInput = %q after upsert, want %q", loaded.UserInput, "Explain fractions")
	}

	// The upsert must not create a second row.
	other, err := store.GetConversation(ctx, "99")
	if err != nil || other == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if other.ID != loaded.ID {
		t.Errorf("upsert created a new row: id %d != %d", other.ID, loaded.ID)
	}
}

func TestGetConversationMissing(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.GetConversation(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if loaded != nil {
		t.Errorf("GetConversation() = %+v, want nil for missing chat", loaded)
	}
}

func TestDeleteConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveConversation(ctx, testConversation("7")); err != nil {
		t.Fatalf("SaveConversation() error: %v", err)
	}
	if err := store.DeleteConversation(ctx, "7"); err != nil {
		t.Fatalf("DeleteConversation() error: %v", err)
	}

	loaded, err := store.GetConversation(ctx, "7")
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if loaded != nil {
		t.Error("conversation still present after delete")
	}
}

func TestDeleteStaleConversations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveConversation(ctx, testConversation("old")); err != nil {
		t.Fatalf("SaveConversation() error: %v", err)
	}
	if err := store.SaveConversation(ctx, testConversation("fresh")); err != nil {
		t.Fatalf("SaveConversation() error: %v", err)
	}

	// Everything was just written; a cutoff in the past removes nothing.
	removed, err := store.DeleteStaleConversations(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteStaleConversations() error: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}

	// A cutoff in the future removes both.
	removed, err = store.DeleteStaleConversations(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteStaleConversations() error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
}

func TestSaveConversationValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveConversation(ctx, nil); err == nil {
		t.Error("SaveConversation(nil) did not fail")
	}
	if err := store.SaveConversation(ctx, &Conversation{State: []byte("{}")}); err == nil {
		t.Error("SaveConversation without chat_id did not fail")
	}
	if err := store.SaveConversation(ctx, &Conversation{ChatID: "1"}); err == nil {
		t.Error("SaveConversation without state did not fail")
	}
}

func TestRunMaintenance(t *testing.T) {
	store := newTestStore(t)

	if err := store.RunMaintenance(context.Background()); err != nil {
		t.Fatalf("RunMaintenance() error: %v", err)
	}
}
