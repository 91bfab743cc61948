package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/domain/report"
)

var _ report.Repository = (*WeeklyReportRepository)(nil)

// WeeklyReportRepository caches computed weekly reports
type WeeklyReportRepository struct {
	db DBTX
}

// NewWeeklyReportRepository creates a new weekly report repository
func NewWeeklyReportRepository(db DBTX) *WeeklyReportRepository {
	return &WeeklyReportRepository{db: db}
}

// GetByWeek returns the stored report for the exact window
func (r *WeeklyReportRepository) GetByWeek(ctx context.Context, userID uuid.UUID, weekStart, weekEnd time.Time) (*report.WeeklyReport, error) {
	var rep report.WeeklyReport
	query := `
		SELECT id, user_id, week_start, week_end, total_trades, wins, losses, breakevens,
		       win_rate, net_profit_loss, notes, created_at
		FROM weekly_reports
		WHERE user_id = $1 AND week_start = $2 AND week_end = $3`

	if err := r.db.GetContext(ctx, &rep, query, userID, weekStart, weekEnd); err != nil {
		return nil, mapError(err, "weekly report")
	}
	return &rep, nil
}

// Create stores a report; the unique window constraint yields ErrAlreadyExists
func (r *WeeklyReportRepository) Create(ctx context.Context, rep *report.WeeklyReport) error {
	query := `
		INSERT INTO weekly_reports (
			id, user_id, week_start, week_end, total_trades, wins, losses, breakevens,
			win_rate, net_profit_loss, notes, created_at
		) VALUES (
			:id, :user_id, :week_start, :week_end, :total_trades, :wins, :losses, :breakevens,
			:win_rate, :net_profit_loss, :notes, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, rep)
	return mapError(err, "weekly report")
}
