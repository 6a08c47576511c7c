package database

import (
	"time"
)

// Conversation holds the persisted state of one student's tutoring session.
// The full agent state is stored as a JSON document in State so the
// orchestration graph can be resumed on the next webhook delivery; the other
// columns exist for querying and retention.
type Conversation struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChatID    string `db:"chat_id"`
	UserID    string `db:"user_id"`
	Platform  string `db:"platform"`
	UserInput string `db:"user_input"`
	State     []byte `db:"state"`
}
