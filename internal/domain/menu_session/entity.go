package menu_session

import (
	"time"
)

// Screen names the list view a session is browsing
const ScreenTradeList = "trade_list"

// Session is short-lived UI navigation state kept outside the conversation
// record, so paging through trades never disturbs an active flow.
type Session struct {
	TelegramID    int64     `json:"telegram_id"`
	CurrentScreen string    `json:"current_screen"`
	Page          int       `json:"page"` // 1-based
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewSession creates a session positioned on the first page of screen
func NewSession(telegramID int64, screen string) *Session {
	now := time.Now()
	return &Session{
		TelegramID:    telegramID,
		CurrentScreen: screen,
		Page:          1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetPage moves the cursor, never below the first page
func (s *Session) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.Page = page
	s.UpdatedAt = time.Now()
}
