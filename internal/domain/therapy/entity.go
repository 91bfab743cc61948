package therapy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one transcript line. Exactly one of User or AI is set, matching
// the {"user": ...} / {"ai": ...} storage shape.
type Entry struct {
	User string `json:"user,omitempty"`
	AI   string `json:"ai,omitempty"`
}

// IsUser reports whether the entry was written by the trader
func (e Entry) IsUser() bool {
	return e.User != ""
}

// Session is an append-only coaching transcript
type Session struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Content   []Entry   `db:"-"`
	CreatedAt time.Time `db:"created_at"`
}

// NewSession starts an empty transcript for a user
func NewSession(userID uuid.UUID, now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Content:   []Entry{},
		CreatedAt: now,
	}
}

// AppendExchange adds a user turn followed by the coach's reply
func (s *Session) AppendExchange(userText, aiText string) {
	s.Content = append(s.Content, Entry{User: userText}, Entry{AI: aiText})
}

// Repository persists therapy transcripts
type Repository interface {
	Create(ctx context.Context, s *Session) error

	// Latest returns the most recently created session, or ErrNotFound
	Latest(ctx context.Context, userID uuid.UUID) (*Session, error)

	// SaveContent overwrites the stored transcript
	SaveContent(ctx context.Context, s *Session) error
}
