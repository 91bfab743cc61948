package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tradejournal/internal/domain/menu_session"
	"tradejournal/pkg/errors"
)

var _ menu_session.Repository = (*MenuSessionRepository)(nil)

// MenuSessionRepository implements menu_session.Repository using Redis
type MenuSessionRepository struct {
	client redis.Cmdable
}

// NewMenuSessionRepository creates a new menu session repository
func NewMenuSessionRepository(client redis.Cmdable) *MenuSessionRepository {
	return &MenuSessionRepository{client: client}
}

// Get retrieves a session by telegram ID
func (r *MenuSessionRepository) Get(ctx context.Context, telegramID int64) (*menu_session.Session, error) {
	data, err := r.client.Get(ctx, menuKey(telegramID)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "menu session not found for telegram_id=%d", telegramID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get menu session from redis: telegram_id=%d", telegramID)
	}

	var session menu_session.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal menu session: telegram_id=%d", telegramID)
	}

	return &session, nil
}

// Save stores a session with TTL
func (r *MenuSessionRepository) Save(ctx context.Context, session *menu_session.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal menu session: telegram_id=%d", session.TelegramID)
	}

	if err := r.client.Set(ctx, menuKey(session.TelegramID), data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to save menu session to redis: telegram_id=%d", session.TelegramID)
	}

	return nil
}

// Delete removes a session
func (r *MenuSessionRepository) Delete(ctx context.Context, telegramID int64) error {
	if err := r.client.Del(ctx, menuKey(telegramID)).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete menu session from redis: telegram_id=%d", telegramID)
	}
	return nil
}

func menuKey(telegramID int64) string {
	return fmt.Sprintf("menu_nav:%d", telegramID)
}
