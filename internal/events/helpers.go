package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event type names
const (
	TypeTradeLogged        = "trade.logged"
	TypeBroadcastCompleted = "broadcast.completed"
)

const (
	eventVersion = "1.0"
	eventSource  = "tradejournal"

	// previewLimit bounds message text copied into events
	previewLimit = 120
)

// BaseEvent carries the envelope shared by every domain event
type BaseEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    string    `json:"version"`
}

// NewBaseEvent creates an envelope stamped with a fresh id and the current time
func NewBaseEvent(eventType, userID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Source:     eventSource,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Version:    eventVersion,
	}
}

// SanitizeUTF8 removes invalid UTF-8 sequences so JSON consumers never choke
func SanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

// Preview sanitizes s and truncates it to a short excerpt on a rune boundary
func Preview(s string) string {
	s = SanitizeUTF8(s)
	runes := []rune(s)
	if len(runes) <= previewLimit {
		return s
	}
	return string(runes[:previewLimit]) + "…"
}
