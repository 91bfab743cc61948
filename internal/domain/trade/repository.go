package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines trade persistence. Every lookup by id is scoped to the
// owning user so one user can never address another user's trade.
type Repository interface {
	Create(ctx context.Context, t *Trade) error
	GetForUser(ctx context.Context, userID uuid.UUID, id int64) (*Trade, error)
	Update(ctx context.Context, t *Trade) error
	Delete(ctx context.Context, userID uuid.UUID, id int64) error

	// ListByUser returns all trades ordered by date, then id
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Trade, error)

	// ListByUserBetween returns trades with from <= date <= to, ordered by date, then id
	ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Trade, error)

	// ListPage returns newest-first trades for paginated listing
	ListPage(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Trade, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}
