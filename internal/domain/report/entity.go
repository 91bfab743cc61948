package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WeeklyReport is a cached Monday-Sunday snapshot. Once stored it is never
// recomputed, even if trades in that week change later.
type WeeklyReport struct {
	ID            uuid.UUID       `db:"id"`
	UserID        uuid.UUID       `db:"user_id"`
	WeekStart     time.Time       `db:"week_start"`
	WeekEnd       time.Time       `db:"week_end"`
	TotalTrades   int             `db:"total_trades"`
	Wins          int             `db:"wins"`
	Losses        int             `db:"losses"`
	Breakevens    int             `db:"breakevens"`
	WinRate       float64         `db:"win_rate"`
	NetProfitLoss decimal.Decimal `db:"net_profit_loss"`
	Notes         string          `db:"notes"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Repository persists weekly reports
type Repository interface {
	// GetByWeek returns the cached report for the window, or ErrNotFound
	GetByWeek(ctx context.Context, userID uuid.UUID, weekStart, weekEnd time.Time) (*WeeklyReport, error)

	// Create stores a report; ErrAlreadyExists when the window is cached already
	Create(ctx context.Context, r *WeeklyReport) error
}
