package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
)

// UnitOfWork snapshots both repositories before fn and restores them when fn
// fails. Units are serialised with each other; writes made outside a unit
// during a failed one are lost on restore.
type UnitOfWork struct {
	mu     sync.Mutex
	users  *UserRepository
	trades *TradeRepository
}

func NewUnitOfWork(users *UserRepository, trades *TradeRepository) *UnitOfWork {
	return &UnitOfWork{users: users, trades: trades}
}

func (u *UnitOfWork) WithTx(ctx context.Context, fn func(users user.Repository, trades trade.Repository) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	users := u.users.snapshot()
	trades, nextID := u.trades.snapshot()

	if err := fn(u.users, u.trades); err != nil {
		u.users.restore(users)
		u.trades.restore(trades, nextID)
		return err
	}
	return nil
}

func (r *UserRepository) snapshot() map[uuid.UUID]user.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]user.User, len(r.users))
	for id, u := range r.users {
		out[id] = copyUser(u)
	}
	return out
}

func (r *UserRepository) restore(users map[uuid.UUID]user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = users
}

func (r *TradeRepository) snapshot() (map[int64]trade.Trade, int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]trade.Trade, len(r.trades))
	for id, t := range r.trades {
		out[id] = copyTrade(t)
	}
	return out, r.nextID
}

func (r *TradeRepository) restore(trades map[int64]trade.Trade, nextID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = trades
	r.nextID = nextID
}
