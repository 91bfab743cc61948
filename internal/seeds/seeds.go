// Package seeds fills a development database with demo journals.
package seeds

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/internal/services/ledger"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

// Seeder writes through the domain services so seeded rows obey the same
// validation and balance rules as chat input
type Seeder struct {
	users  *user.Service
	ledger *ledger.Service
	log    *logger.Logger
}

// New creates a seeder
func New(users *user.Service, book *ledger.Service, log *logger.Logger) *Seeder {
	return &Seeder{users: users, ledger: book, log: log.With("component", "seeder")}
}

// Func is one seed step
type Func func(ctx context.Context, s *Seeder) error

// ForEnv returns seed steps for an environment, in order
func ForEnv(env string) []Func {
	switch env {
	case "dev":
		return []Func{SeedPersonalTrader, SeedFundedTrader}
	case "test":
		return []Func{SeedPersonalTrader}
	default:
		return nil
	}
}

// Run executes steps in order and stops at the first failure
func (s *Seeder) Run(ctx context.Context, steps []Func) error {
	for i, step := range steps {
		if err := step(ctx, s); err != nil {
			return errors.Wrapf(err, "seed step %d", i+1)
		}
		s.log.Infow("✅ Seed completed", "step", i+1, "total", len(steps))
	}
	return nil
}

type tradeSeed struct {
	daysAgo    int
	pair       string
	stopLoss   int64
	takeProfit int64
	result     trade.Result
	breakeven  int64
	notes      string
}

// SeedPersonalTrader creates a registered personal-account trader with a
// mixed week of trades (idempotent on telegram id)
func SeedPersonalTrader(ctx context.Context, s *Seeder) error {
	u, err := s.registered(ctx, 123456789, "Dev Trader", func(u *user.User) {
		u.Age = 29
		u.TradingYears = 2.5
		u.ExperienceLevel = user.ExperienceIntermediate
		u.SetAccountType(user.AccountPersonal)
		u.ProfitTarget = decimal.NewFromInt(10000)
		u.InitialBalance = decimal.NewFromInt(5000)
	})
	if err != nil || u == nil {
		return err
	}

	return s.journal(ctx, u, []tradeSeed{
		{daysAgo: 6, pair: "EURUSD", stopLoss: 50, takeProfit: 120, result: trade.ResultWin, notes: "Clean London breakout"},
		{daysAgo: 5, pair: "GBPJPY", stopLoss: 80, takeProfit: 160, result: trade.ResultLoss, notes: "Entered before confirmation"},
		{daysAgo: 3, pair: "EURUSD", stopLoss: 40, takeProfit: 90, result: trade.ResultWin, notes: "Followed the plan"},
		{daysAgo: 1, pair: "XAUUSD", stopLoss: 100, takeProfit: 200, result: trade.ResultBreakeven, breakeven: 5, notes: "Moved stop to entry"},
	})
}

// SeedFundedTrader creates a funded phase 1 trader with a short history
func SeedFundedTrader(ctx context.Context, s *Seeder) error {
	u, err := s.registered(ctx, 987654321, "Funded Trader", func(u *user.User) {
		phase := user.Phase1
		u.Age = 35
		u.TradingYears = 6
		u.ExperienceLevel = user.ExperienceAdvanced
		u.SetAccountType(user.AccountFunded)
		u.Phase = &phase
		u.ProfitTarget = decimal.NewFromInt(8000)
		u.InitialBalance = decimal.NewFromInt(100000)
	})
	if err != nil || u == nil {
		return err
	}

	return s.journal(ctx, u, []tradeSeed{
		{daysAgo: 2, pair: "NAS100", stopLoss: 500, takeProfit: 1500, result: trade.ResultWin, notes: "Trend day"},
		{daysAgo: 1, pair: "US30", stopLoss: 400, takeProfit: 800, result: trade.ResultLoss, notes: "Revenge trade"},
	})
}

// registered returns a freshly registered user, or nil when the telegram id
// already finished registration
func (s *Seeder) registered(ctx context.Context, telegramID int64, name string, profile func(*user.User)) (*user.User, error) {
	u, err := s.users.GetOrCreate(ctx, telegramID, name)
	if err != nil {
		return nil, err
	}
	if u.RegistrationComplete {
		s.log.Infow("User already seeded, skipping", "telegram_id", telegramID)
		return nil, nil
	}

	profile(u)
	if err := s.users.CompleteRegistration(ctx, u); err != nil {
		return nil, err
	}
	s.log.Infow("Created user", "telegram_id", telegramID, "account", u.AccountLabel())
	return u, nil
}

func (s *Seeder) journal(ctx context.Context, u *user.User, seeds []tradeSeed) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	for _, ts := range seeds {
		stopLoss := decimal.NewFromInt(ts.stopLoss)
		takeProfit := decimal.NewFromInt(ts.takeProfit)
		pnl := trade.DeriveProfitLoss(ts.result, stopLoss, takeProfit, decimal.NewFromInt(ts.breakeven))

		t := &trade.Trade{
			UserID:     u.ID,
			Date:       today.AddDate(0, 0, -ts.daysAgo),
			PairTraded: ts.pair,
			StopLoss:   stopLoss,
			TakeProfit: takeProfit,
			Result:     ts.result,
			ProfitLoss: decimal.NewNullDecimal(pnl),
			Notes:      ts.notes,
		}
		if err := s.ledger.Log(ctx, u, t); err != nil {
			return errors.Wrapf(err, "seed trade %s", ts.pair)
		}
	}

	s.log.Infow("Seeded trades", "telegram_id", u.TelegramID, "count", len(seeds), "balance", u.Balance().StringFixed(2))
	return nil
}
