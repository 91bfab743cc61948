package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/domain/trade"
)

var _ trade.Repository = (*TradeRepository)(nil)

const tradeColumns = `
	id, user_id, date, pair_traded, stop_loss, take_profit, result, profit_loss,
	screenshot_id, notes, created_at`

// TradeRepository implements trade.Repository using sqlx
type TradeRepository struct {
	db DBTX
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db DBTX) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a trade and assigns its serial id
func (r *TradeRepository) Create(ctx context.Context, t *trade.Trade) error {
	query := `
		INSERT INTO trades (
			user_id, date, pair_traded, stop_loss, take_profit, result, profit_loss,
			screenshot_id, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		t.UserID, t.Date, t.PairTraded, t.StopLoss, t.TakeProfit, t.Result, t.ProfitLoss,
		t.ScreenshotID, t.Notes, t.CreatedAt,
	).Scan(&t.ID)
	return mapError(err, "trade")
}

// GetForUser returns a trade only when userID owns it
func (r *TradeRepository) GetForUser(ctx context.Context, userID uuid.UUID, id int64) (*trade.Trade, error) {
	var t trade.Trade
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1 AND user_id = $2`
	if err := r.db.GetContext(ctx, &t, query, id, userID); err != nil {
		return nil, mapError(err, "trade")
	}
	return &t, nil
}

// Update overwrites the editable columns of an owned trade
func (r *TradeRepository) Update(ctx context.Context, t *trade.Trade) error {
	query := `
		UPDATE trades SET
			date = $3,
			pair_traded = $4,
			stop_loss = $5,
			take_profit = $6,
			result = $7,
			profit_loss = $8,
			screenshot_id = $9,
			notes = $10
		WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Date, t.PairTraded, t.StopLoss, t.TakeProfit, t.Result, t.ProfitLoss,
		t.ScreenshotID, t.Notes,
	)
	if err != nil {
		return mapError(err, "trade")
	}
	return expectRow(res, "trade")
}

// Delete removes an owned trade
func (r *TradeRepository) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapError(err, "trade")
	}
	return expectRow(res, "trade")
}

// ListByUser returns the whole history ordered by date, then id
func (r *TradeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]trade.Trade, error) {
	trades := []trade.Trade{}
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE user_id = $1 ORDER BY date, id`
	if err := r.db.SelectContext(ctx, &trades, query, userID); err != nil {
		return nil, mapError(err, "trades")
	}
	return trades, nil
}

// ListByUserBetween returns trades with from <= date <= to
func (r *TradeRepository) ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]trade.Trade, error) {
	trades := []trade.Trade{}
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, id`

	if err := r.db.SelectContext(ctx, &trades, query, userID, from, to); err != nil {
		return nil, mapError(err, "trades")
	}
	return trades, nil
}

// ListPage returns one newest-first slice of the history
func (r *TradeRepository) ListPage(ctx context.Context, userID uuid.UUID, limit, offset int) ([]trade.Trade, error) {
	trades := []trade.Trade{}
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE user_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &trades, query, userID, limit, offset); err != nil {
		return nil, mapError(err, "trades")
	}
	return trades, nil
}

// CountByUser returns how many trades a user has
func (r *TradeRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM trades WHERE user_id = $1`, userID); err != nil {
		return 0, mapError(err, "trades")
	}
	return n, nil
}
