package menu_session

import (
	"context"
	"time"

	"tradejournal/internal/domain/menu_session"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

// Service keeps the trade-list page cursor between pagination requests
type Service struct {
	repo menu_session.Repository
	ttl  time.Duration
	log  *logger.Logger
}

// NewService creates a new menu session service
func NewService(repo menu_session.Repository, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{
		repo: repo,
		ttl:  ttl,
		log:  log.With("service", "menu_session"),
	}
}

// CurrentPage returns the stored cursor for the trade list, or 1 when the
// user has no live viewing session.
func (s *Service) CurrentPage(ctx context.Context, telegramID int64) (int, error) {
	session, err := s.repo.Get(ctx, telegramID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.log.Debugw("Menu session not found", "telegram_id", telegramID)
			return 1, nil
		}
		s.log.Errorw("Failed to get menu session", "telegram_id", telegramID, "error", err)
		return 0, err
	}
	if session.CurrentScreen != menu_session.ScreenTradeList || session.Page < 1 {
		return 1, nil
	}
	return session.Page, nil
}

// SetPage stores the cursor and refreshes the session TTL
func (s *Service) SetPage(ctx context.Context, telegramID int64, page int) error {
	session := menu_session.NewSession(telegramID, menu_session.ScreenTradeList)
	session.SetPage(page)

	if err := s.repo.Save(ctx, session, s.ttl); err != nil {
		s.log.Errorw("Failed to save menu session", "telegram_id", telegramID, "error", err)
		return err
	}

	s.log.Debugw("Menu session saved", "telegram_id", telegramID, "page", session.Page)
	return nil
}

// Reset drops the viewing session
func (s *Service) Reset(ctx context.Context, telegramID int64) error {
	if err := s.repo.Delete(ctx, telegramID); err != nil {
		s.log.Errorw("Failed to delete menu session", "telegram_id", telegramID, "error", err)
		return err
	}
	return nil
}
