package trade

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

// DefaultPageSize is the number of trades shown per list page
const DefaultPageSize = 5

// Service encapsulates trade operations.
type Service struct {
	repo     Repository
	log      *logger.Logger
	now      func() time.Time
	pageSize int
}

// NewService constructs a trade service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		log:      logger.Get().With("service", "trade"),
		now:      func() time.Time { return time.Now().UTC() },
		pageSize: DefaultPageSize,
	}
}

// WithClock overrides the time source used for future-date validation
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithRepository returns a copy of the service bound to repo, such as a
// repository scoped to a transaction
func (s *Service) WithRepository(repo Repository) *Service {
	c := *s
	c.repo = repo
	return &c
}

// Validate checks the invariants a stored trade must satisfy
func (s *Service) Validate(t *Trade) error {
	if t == nil || t.UserID == uuid.Nil {
		return errors.Wrap(errors.ErrInvalidInput, "trade owner is required")
	}
	if t.Date.IsZero() {
		return errors.NewValidationError("date", "is required", nil)
	}
	if t.Date.After(s.today()) {
		return errors.NewValidationError("date", "cannot be in the future", t.DateString())
	}
	if strings.TrimSpace(t.PairTraded) == "" {
		return errors.NewValidationError("pair_traded", "is required", t.PairTraded)
	}
	if !t.StopLoss.GreaterThan(decimal.Zero) {
		return errors.NewValidationError("stop_loss", "must be positive", t.StopLoss.String())
	}
	if !t.TakeProfit.GreaterThan(decimal.Zero) {
		return errors.NewValidationError("take_profit", "must be positive", t.TakeProfit.String())
	}
	if _, ok := ParseResult(string(t.Result)); !ok {
		return errors.NewValidationError("result", "must be Win, Loss or Breakeven", t.Result)
	}
	return nil
}

// Log stores a new trade.
func (s *Service) Log(ctx context.Context, t *Trade) error {
	t.PairTraded = strings.ToUpper(strings.TrimSpace(t.PairTraded))
	if err := s.Validate(t); err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return errors.Wrap(err, "create trade")
	}
	s.log.Infow("Trade logged",
		"trade_id", t.ID,
		"user_id", t.UserID,
		"pair", t.PairTraded,
		"result", t.Result,
		"profit_loss", t.PnL().String(),
	)
	return nil
}

// Get returns a trade only when it belongs to userID.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, id int64) (*Trade, error) {
	if id <= 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "trade %d", id)
	}
	t, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get trade %d", id)
	}
	return t, nil
}

// Update persists an edited trade after revalidation.
func (s *Service) Update(ctx context.Context, t *Trade) error {
	t.PairTraded = strings.ToUpper(strings.TrimSpace(t.PairTraded))
	if err := s.Validate(t); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return errors.Wrapf(err, "update trade %d", t.ID)
	}
	return nil
}

// Delete removes a trade owned by userID.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return errors.Wrapf(err, "delete trade %d", id)
	}
	s.log.Infow("Trade deleted", "trade_id", id, "user_id", userID)
	return nil
}

// List returns the full trade history ordered by date.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Trade, error) {
	trades, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list trades")
	}
	return trades, nil
}

// ListBetween returns trades inside an inclusive date window.
func (s *Service) ListBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Trade, error) {
	trades, err := s.repo.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "list trades between")
	}
	return trades, nil
}

// Page returns one newest-first page. Out-of-range pages are clamped.
func (s *Service) Page(ctx context.Context, userID uuid.UUID, page int) (Page, error) {
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return Page{}, errors.Wrap(err, "count trades")
	}

	totalPages := (total + s.pageSize - 1) / s.pageSize
	if totalPages == 0 {
		return Page{Page: 1, TotalPages: 0, Total: 0}, nil
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	trades, err := s.repo.ListPage(ctx, userID, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return Page{}, errors.Wrap(err, "list trade page")
	}

	return Page{Trades: trades, Page: page, TotalPages: totalPages, Total: total}, nil
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
