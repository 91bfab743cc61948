package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain/trade"
	"tradejournal/pkg/errors"
)

func newTrade(userID uuid.UUID, date string, result trade.Result, pnl string) *trade.Trade {
	d, _ := time.Parse(trade.DateLayout, date)
	t := &trade.Trade{
		UserID:     userID,
		Date:       d,
		PairTraded: "EURUSD",
		StopLoss:   decimal.NewFromInt(10),
		TakeProfit: decimal.NewFromInt(20),
		Result:     result,
		CreatedAt:  time.Now().UTC(),
	}
	if pnl != "" {
		t.ProfitLoss = decimal.NewNullDecimal(decimal.RequireFromString(pnl))
	}
	return t
}

func TestTradeRepository_CreateAssignsSerialID(t *testing.T) {
	testDB := newTestDB(t)
	repo := NewTradeRepository(testDB.Tx())
	ctx := context.Background()
	u := seedUser(t, testDB.Tx())

	first := newTrade(u.ID, "2025-04-28", trade.ResultWin, "20")
	second := newTrade(u.ID, "2025-04-29", trade.ResultBreakeven, "")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	assert.Greater(t, first.ID, int64(0))
	assert.Greater(t, second.ID, first.ID)

	got, err := repo.GetForUser(ctx, u.ID, second.ID)
	require.NoError(t, err)
	assert.False(t, got.HasPnL())
	assert.Equal(t, "2025-04-29", got.DateString())
}

func TestTradeRepository_OwnershipScoping(t *testing.T) {
	testDB := newTestDB(t)
	repo := NewTradeRepository(testDB.Tx())
	ctx := context.Background()
	owner := seedUser(t, testDB.Tx())
	other := seedUser(t, testDB.Tx())

	tr := newTrade(owner.ID, "2025-04-28", trade.ResultWin, "20")
	require.NoError(t, repo.Create(ctx, tr))

	_, err := repo.GetForUser(ctx, other.ID, tr.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	err = repo.Delete(ctx, other.ID, tr.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	foreign := *tr
	foreign.UserID = other.ID
	err = repo.Update(ctx, &foreign)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestTradeRepository_UpdateAndDelete(t *testing.T) {
	testDB := newTestDB(t)
	repo := NewTradeRepository(testDB.Tx())
	ctx := context.Background()
	u := seedUser(t, testDB.Tx())

	tr := newTrade(u.ID, "2025-04-28", trade.ResultWin, "20")
	require.NoError(t, repo.Create(ctx, tr))

	tr.Result = trade.ResultLoss
	tr.Rederive()
	tr.Notes = "moved stop too early"
	require.NoError(t, repo.Update(ctx, tr))

	got, err := repo.GetForUser(ctx, u.ID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.ResultLoss, got.Result)
	assert.Equal(t, "-10.00", got.PnL().StringFixed(2))
	assert.Equal(t, "moved stop too early", got.Notes)

	require.NoError(t, repo.Delete(ctx, u.ID, tr.ID))
	n, err := repo.CountByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTradeRepository_Listing(t *testing.T) {
	testDB := newTestDB(t)
	repo := NewTradeRepository(testDB.Tx())
	ctx := context.Background()
	u := seedUser(t, testDB.Tx())

	for _, date := range []string{"2025-04-30", "2025-04-27", "2025-05-05", "2025-04-28"} {
		require.NoError(t, repo.Create(ctx, newTrade(u.ID, date, trade.ResultWin, "20")))
	}

	all, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2025-04-27", all[0].DateString())
	assert.Equal(t, "2025-05-05", all[3].DateString())

	from, _ := time.Parse(trade.DateLayout, "2025-04-28")
	to, _ := time.Parse(trade.DateLayout, "2025-05-04")
	week, err := repo.ListByUserBetween(ctx, u.ID, from, to)
	require.NoError(t, err)
	assert.Len(t, week, 2)

	page, err := repo.ListPage(ctx, u.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2025-05-05", page[0].DateString())
	assert.Equal(t, "2025-04-30", page[1].DateString())

	page, err = repo.ListPage(ctx, u.ID, 2, 4)
	require.NoError(t, err)
	assert.Empty(t, page)
}
