package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/domain/report"
	"tradejournal/internal/domain/trade"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

// TradeLister is the slice of trade storage analytics reads from
type TradeLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]trade.Trade, error)
	ListBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]trade.Trade, error)
}

// Service loads trades and produces stats and cached weekly reports
type Service struct {
	trades  TradeLister
	reports report.Repository
	log     *logger.Logger
}

// NewService creates an analytics service
func NewService(trades TradeLister, reports report.Repository, log *logger.Logger) *Service {
	return &Service{
		trades:  trades,
		reports: reports,
		log:     log.With("service", "analytics"),
	}
}

// Stats computes lifetime statistics for a user
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (Stats, []trade.Trade, error) {
	trades, err := s.trades.List(ctx, userID)
	if err != nil {
		return Stats{}, nil, errors.Wrap(err, "list trades")
	}
	return ComputeStats(trades), trades, nil
}

// WeeklyReport returns the report for the week holding now. A stored report
// is returned as is; otherwise one is computed and stored. Weeks without
// trades yield ErrNotFound and are not stored.
func (s *Service) WeeklyReport(ctx context.Context, userID uuid.UUID, now time.Time) (*report.WeeklyReport, error) {
	start, end := WeekBounds(now)

	cached, err := s.reports.GetByWeek(ctx, userID, start, end)
	if err == nil {
		s.log.Debugw("Weekly report cache hit", "user_id", userID, "week_start", start.Format(trade.DateLayout))
		return cached, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Wrap(err, "get weekly report")
	}

	trades, err := s.trades.ListBetween(ctx, userID, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "list weekly trades")
	}
	if len(trades) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no trades between %s and %s",
			start.Format(trade.DateLayout), end.Format(trade.DateLayout))
	}

	rep := GenerateWeeklyReport(trades, start, end)
	row := &report.WeeklyReport{
		ID:            uuid.New(),
		UserID:        userID,
		WeekStart:     start,
		WeekEnd:       end,
		TotalTrades:   rep.Stats.TotalTrades,
		Wins:          rep.Stats.Wins,
		Losses:        rep.Stats.Losses,
		Breakevens:    rep.Stats.Breakevens,
		WinRate:       rep.Stats.WinRate,
		NetProfitLoss: rep.Stats.NetProfitLoss,
		Notes:         rep.Notes,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.reports.Create(ctx, row); err != nil {
		// Lost a race with another writer; the stored row wins.
		if errors.Is(err, errors.ErrAlreadyExists) {
			return s.reports.GetByWeek(ctx, userID, start, end)
		}
		return nil, errors.Wrap(err, "store weekly report")
	}

	s.log.Infow("Weekly report generated",
		"user_id", userID,
		"week_start", start.Format(trade.DateLayout),
		"total_trades", row.TotalTrades,
	)
	return row, nil
}
