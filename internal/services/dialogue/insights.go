package dialogue

import (
	"tradejournal/internal/services/coaching"
	"tradejournal/pkg/errors"
)

const msgNoTradesThisWeek = "No trades recorded this week (Monday to Sunday). Use /journal to log a trade."

func (e *Engine) stats(t *turn) ([]Response, error) {
	if err := e.clear(t); err != nil {
		return nil, err
	}

	stats, _, err := e.analytics.Stats(t.ctx, t.user.ID)
	if err != nil {
		return nil, err
	}
	if stats.TotalTrades == 0 {
		return text(msgNoTrades), nil
	}

	resp, err := e.render("stats", stats)
	if err != nil {
		return nil, err
	}
	return []Response{resp}, nil
}

// summary asks the coach to analyse the whole trade history
func (e *Engine) summary(t *turn) ([]Response, error) {
	if err := e.clear(t); err != nil {
		return nil, err
	}

	trades, err := e.trades.List(t.ctx, t.user.ID)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return text(msgNoTrades), nil
	}

	return text(e.coach.Summary(t.ctx, coaching.ProfileFromUser(t.user), trades)), nil
}

func (e *Engine) report(t *turn) ([]Response, error) {
	if err := e.clear(t); err != nil {
		return nil, err
	}

	rep, err := e.analytics.WeeklyReport(t.ctx, t.user.ID, e.now())
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return text(msgNoTradesThisWeek), nil
		}
		return nil, err
	}

	resp, err := e.render("weekly_report", rep)
	if err != nil {
		return nil, err
	}
	return []Response{resp}, nil
}
