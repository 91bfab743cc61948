// Package ledger keeps trades and account balances in step. Every trade write
// and the balance shift it causes commit together or not at all.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

// UnitOfWork runs fn with repositories whose writes commit together. When fn
// returns an error nothing it wrote is kept.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(users user.Repository, trades trade.Repository) error) error
}

// Service applies trade changes together with their balance deltas
type Service struct {
	uow    UnitOfWork
	users  *user.Service
	trades *trade.Service
	log    *logger.Logger
}

// NewService creates a ledger over uow. The services supply validation and
// are rebound to the unit's repositories for each write.
func NewService(uow UnitOfWork, users *user.Service, trades *trade.Service, log *logger.Logger) *Service {
	return &Service{
		uow:    uow,
		users:  users,
		trades: trades,
		log:    log.With("component", "ledger"),
	}
}

// Log stores a new trade and credits its P/L to the owner's balance
func (s *Service) Log(ctx context.Context, u *user.User, t *trade.Trade) error {
	err := s.apply(ctx, u, func(users *user.Service, trades *trade.Service, owner *user.User) error {
		if err := trades.Log(ctx, t); err != nil {
			return err
		}
		return users.ApplyTradeDelta(ctx, owner, t.PnL())
	})
	if err != nil {
		return errors.Wrap(err, "log trade")
	}
	return nil
}

// Update stores an edited trade and shifts the balance by (new - old) P/L
func (s *Service) Update(ctx context.Context, u *user.User, t *trade.Trade, oldPnL decimal.Decimal) error {
	err := s.apply(ctx, u, func(users *user.Service, trades *trade.Service, owner *user.User) error {
		if err := trades.Update(ctx, t); err != nil {
			return err
		}
		return users.ApplyTradeDelta(ctx, owner, t.PnL().Sub(oldPnL))
	})
	if err != nil {
		return errors.Wrapf(err, "update trade %d", t.ID)
	}
	return nil
}

// Delete removes a trade and reverts its P/L from the balance
func (s *Service) Delete(ctx context.Context, u *user.User, t *trade.Trade) error {
	err := s.apply(ctx, u, func(users *user.Service, trades *trade.Service, owner *user.User) error {
		if err := trades.Delete(ctx, u.ID, t.ID); err != nil {
			return err
		}
		return users.ApplyTradeDelta(ctx, owner, t.PnL().Neg())
	})
	if err != nil {
		return errors.Wrapf(err, "delete trade %d", t.ID)
	}
	return nil
}

// apply works on a copy of u so a rolled-back unit leaves the caller's user
// untouched
func (s *Service) apply(ctx context.Context, u *user.User, fn func(*user.Service, *trade.Service, *user.User) error) error {
	owner := *u
	err := s.uow.WithTx(ctx, func(users user.Repository, trades trade.Repository) error {
		return fn(s.users.WithRepository(users), s.trades.WithRepository(trades), &owner)
	})
	if err != nil {
		s.log.Debugw("Ledger write rolled back", "user_id", u.ID, "error", err)
		return err
	}
	*u = owner
	return nil
}
