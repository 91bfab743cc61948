package testsupport

import (
	"context"
	"sync"

	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/pkg/errors"
)

// TxRunner is anything that runs user and trade writes as one unit
type TxRunner interface {
	WithTx(ctx context.Context, fn func(users user.Repository, trades trade.Repository) error) error
}

// FlakyUnit wraps a unit of work and fails the next user updates made
// inside it, after any trade write in the same unit has already happened
type FlakyUnit struct {
	inner TxRunner

	mu          sync.Mutex
	failUpdates int
}

func NewFlakyUnit(inner TxRunner) *FlakyUnit {
	return &FlakyUnit{inner: inner}
}

// FailUserUpdates makes the next n user updates return ErrUnavailable
func (f *FlakyUnit) FailUserUpdates(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failUpdates = n
}

func (f *FlakyUnit) WithTx(ctx context.Context, fn func(users user.Repository, trades trade.Repository) error) error {
	return f.inner.WithTx(ctx, func(users user.Repository, trades trade.Repository) error {
		return fn(&flakyUsers{Repository: users, unit: f}, trades)
	})
}

func (f *FlakyUnit) takeFailure() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdates == 0 {
		return false
	}
	f.failUpdates--
	return true
}

type flakyUsers struct {
	user.Repository
	unit *FlakyUnit
}

func (r *flakyUsers) Update(ctx context.Context, u *user.User) error {
	if r.unit.takeFailure() {
		return errors.Wrap(errors.ErrUnavailable, "user store unavailable")
	}
	return r.Repository.Update(ctx, u)
}
