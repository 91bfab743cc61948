package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/pkg/errors"
)

const unitSavepoint = "ledger_unit"

// UnitOfWork runs user and trade writes in one transaction. Over a pool it
// begins a transaction; over an open transaction it nests a savepoint.
type UnitOfWork struct {
	db DBTX
}

// NewUnitOfWork accepts a *sqlx.DB or a *sqlx.Tx
func NewUnitOfWork(db DBTX) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithTx commits when fn succeeds and rolls back otherwise
func (u *UnitOfWork) WithTx(ctx context.Context, fn func(users user.Repository, trades trade.Repository) error) error {
	if tx, ok := u.db.(*sqlx.Tx); ok {
		return u.withSavepoint(ctx, tx, fn)
	}

	pool, ok := u.db.(*sqlx.DB)
	if !ok {
		return errors.Wrapf(errors.ErrInternal, "unit of work over %T", u.db)
	}

	tx, err := pool.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(NewUserRepository(tx), NewTradeRepository(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

func (u *UnitOfWork) withSavepoint(ctx context.Context, tx *sqlx.Tx, fn func(user.Repository, trade.Repository) error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+unitSavepoint); err != nil {
		return errors.Wrap(err, "create savepoint")
	}
	if err := fn(NewUserRepository(tx), NewTradeRepository(tx)); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+unitSavepoint); rbErr != nil {
			return errors.Wrapf(err, "rollback to savepoint failed: %v", rbErr)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+unitSavepoint); err != nil {
		return errors.Wrap(err, "release savepoint")
	}
	return nil
}
