package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/internal/repository/memory"
	"tradejournal/internal/testsupport"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

type fixture struct {
	ledger *Service
	unit   *testsupport.FlakyUnit
	users  *memory.UserRepository
	trades *memory.TradeRepository
	owner  *user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUserRepository()
	trades := memory.NewTradeRepository()
	unit := testsupport.NewFlakyUnit(memory.NewUnitOfWork(users, trades))

	owner := &user.User{
		ID:                   uuid.New(),
		TelegramID:           77,
		InitialBalance:       decimal.NewFromInt(1000),
		CurrentBalance:       decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		RegistrationComplete: true,
	}
	require.NoError(t, users.Create(context.Background(), owner))

	return &fixture{
		ledger: NewService(unit, user.NewService(users), trade.NewService(trades), logger.NewNop()),
		unit:   unit,
		users:  users,
		trades: trades,
		owner:  owner,
	}
}

func (f *fixture) storedBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), f.owner.ID)
	require.NoError(t, err)
	return u.Balance()
}

func winTrade(userID uuid.UUID) *trade.Trade {
	return &trade.Trade{
		UserID:     userID,
		Date:       time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC),
		PairTraded: "eurusd",
		StopLoss:   decimal.NewFromInt(25),
		TakeProfit: decimal.NewFromInt(50),
		Result:     trade.ResultWin,
		ProfitLoss: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		Notes:      "plan",
	}
}

func TestLog(t *testing.T) {
	t.Run("commits trade and balance", func(t *testing.T) {
		f := newFixture(t)
		tr := winTrade(f.owner.ID)

		require.NoError(t, f.ledger.Log(context.Background(), f.owner, tr))

		assert.Equal(t, 1, f.trades.Count())
		assert.Equal(t, "EURUSD", tr.PairTraded)
		assert.True(t, f.owner.Balance().Equal(decimal.NewFromInt(1050)))
		assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(1050)))
	})

	t.Run("balance failure drops the trade", func(t *testing.T) {
		f := newFixture(t)
		f.unit.FailUserUpdates(1)

		err := f.ledger.Log(context.Background(), f.owner, winTrade(f.owner.ID))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnavailable))

		assert.Equal(t, 0, f.trades.Count())
		assert.True(t, f.owner.Balance().Equal(decimal.NewFromInt(1000)), f.owner.Balance().String())
		assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(1000)))

		// a retry writes exactly one trade
		require.NoError(t, f.ledger.Log(context.Background(), f.owner, winTrade(f.owner.ID)))
		assert.Equal(t, 1, f.trades.Count())
		assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(1050)))
	})

	t.Run("invalid trade writes nothing", func(t *testing.T) {
		f := newFixture(t)
		tr := winTrade(f.owner.ID)
		tr.StopLoss = decimal.Zero

		err := f.ledger.Log(context.Background(), f.owner, tr)
		require.Error(t, err)
		assert.Equal(t, 0, f.trades.Count())
		assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(1000)))
	})
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := winTrade(f.owner.ID)
	require.NoError(t, f.ledger.Log(ctx, f.owner, tr))

	old := tr.PnL()
	tr.Result = trade.ResultLoss
	tr.Rederive()

	f.unit.FailUserUpdates(1)
	require.Error(t, f.ledger.Update(ctx, f.owner, tr, old))

	stored, err := f.trades.GetForUser(ctx, f.owner.ID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.ResultWin, stored.Result)
	assert.True(t, stored.PnL().Equal(decimal.NewFromInt(50)))
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(1050)))

	// the retry still sees the old P/L, so the full delta lands
	require.NoError(t, f.ledger.Update(ctx, f.owner, tr, stored.PnL()))
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(975)), f.storedBalance(t).String())
	assert.True(t, f.owner.Balance().Equal(decimal.NewFromInt(975)))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := winTrade(f.owner.ID)
	require.NoError(t, f.ledger.Log(ctx, f.owner, tr))

	f.unit.FailUserUpdates(1)
	require.Error(t, f.ledger.Delete(ctx, f.owner, tr))
	assert.Equal(t, 1, f.trades.Count())
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(1050)))

	require.NoError(t, f.ledger.Delete(ctx, f.owner, tr))
	assert.Equal(t, 0, f.trades.Count())
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(1000)))

	err := f.ledger.Delete(ctx, f.owner, tr)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
