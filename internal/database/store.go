package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mwalimu/mwalimubot/internal/config"
)

// Store defines the data access operations for conversation state.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveConversation inserts or updates the conversation for its chat ID.
	SaveConversation(ctx context.Context, conv *Conversation) error

	// GetConversation retrieves the conversation for a chat ID.
	// Returns nil, nil when no conversation exists.
	GetConversation(ctx context.Context, chatID string) (*Conversation, error)

	// DeleteConversation removes the conversation for a chat ID.
	DeleteConversation(ctx context.Context, chatID string) error

	// DeleteStaleConversations removes conversations not updated since the
	// cutoff and returns how many were removed.
	DeleteStaleConversations(ctx context.Context, cutoff time.Time) (int64, error)

	// RunMaintenance performs dialect-specific housekeeping (VACUUM/ANALYZE).
	RunMaintenance(ctx context.Context) error
}

// sqlxStore implements Store on top of sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
}

// NewStore creates a Store backed by the given connection pool. The driver
// name selects dialect-specific maintenance statements.
func NewStore(db *sqlx.DB, driver string, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		driver: driver,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveConversation upserts keyed on chat_id, so redelivered webhook updates
// overwrite state instead of duplicating rows.
func (s *sqlxStore) SaveConversation(ctx context.Context, conv *Conversation) error {
	if conv == nil {
		return fmt.Errorf("cannot save nil conversation")
	}
	if conv.ChatID == "" {
		return fmt.Errorf("conversation must have a non-empty chat_id")
	}
	if len(conv.State) == 0 {
		return fmt.Errorf("conversation must have a non-empty state")
	}

	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	query := `
        INSERT INTO conversations (chat_id, user_id, platform, user_input, state, created_at, updated_at)
        VALUES (:chat_id, :user_id, :platform, :user_input, :state, :created_at, :updated_at)
        ON CONFLICT (chat_id) DO UPDATE SET
            user_id = excluded.user_id,
            platform = excluded.platform,
            user_input = excluded.user_input,
            state = excluded.state,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, conv); err != nil {
		s.logger.ErrorContext(ctx, "Error saving conversation", "chat_id", conv.ChatID, "error", err)
		return fmt.Errorf("failed to save conversation (chat %s): %w", conv.ChatID, err)
	}

	s.logger.DebugContext(ctx, "Conversation saved", "chat_id", conv.ChatID, "state_bytes", len(conv.State))
	return nil
}

func (s *sqlxStore) GetConversation(ctx context.Context, chatID string) (*Conversation, error) {
	if chatID == "" {
		return nil, fmt.Errorf("chat_id cannot be empty")
	}

	query := s.db.Rebind(`
        SELECT id, chat_id, user_id, platform, user_input, state, created_at, updated_at
        FROM conversations
        WHERE chat_id = ?
        LIMIT 1;
    `)

	var conv Conversation
	if err := s.db.GetContext(ctx, &conv, query, chatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error loading conversation", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to load conversation (chat %s): %w", chatID, err)
	}

	return &conv, nil
}

func (s *sqlxStore) DeleteConversation(ctx context.Context, chatID string) error {
	if chatID == "" {
		return fmt.Errorf("chat_id cannot be empty")
	}

	query := s.db.Rebind(`DELETE FROM conversations WHERE chat_id = ?;`)
	if _, err := s.db.ExecContext(ctx, query, chatID); err != nil {
		s.logger.ErrorContext(ctx, "Error deleting conversation", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to delete conversation (chat %s): %w", chatID, err)
	}

	s.logger.InfoContext(ctx, "Conversation deleted", "chat_id", chatID)
	return nil
}

func (s *sqlxStore) DeleteStaleConversations(ctx context.Context, cutoff time.Time) (int64, error) {
	query := s.db.Rebind(`DELETE FROM conversations WHERE updated_at < ?;`)

	result, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting stale conversations", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to delete stale conversations: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not determine rows affected for stale cleanup", "error", err)
		return 0, nil
	}

	return affected, nil
}

func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	statements := []string{"VACUUM;", "ANALYZE;"}
	if s.driver == config.DriverPostgres {
		statements = []string{"VACUUM (ANALYZE) conversations;"}
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("maintenance statement %q failed: %w", stmt, err)
		}
	}

	s.logger.InfoContext(ctx, "Database maintenance completed", "driver", s.driver)
	return nil
}
