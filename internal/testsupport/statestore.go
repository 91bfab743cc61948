package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/trade"
	"tradejournal/pkg/errors"
)

// RunStateStoreContract checks the behaviour every conversation.Store backend
// must share. newUser returns an id the backend accepts as a record owner.
func RunStateStoreContract(t *testing.T, store conversation.Store, newUser func(t *testing.T) uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	t.Run("idle user reads nil", func(t *testing.T) {
		st, err := store.Get(ctx, newUser(t))
		require.NoError(t, err)
		assert.Nil(t, st)
	})

	t.Run("nil payload preserves draft", func(t *testing.T) {
		userID := newUser(t)
		sl := decimal.RequireFromString("10.5")
		draft := &conversation.Payload{Journal: &conversation.JournalDraft{
			Date:     "2025-04-28",
			Pair:     "EURUSD",
			StopLoss: &sl,
		}}
		require.NoError(t, store.Set(ctx, userID, conversation.StepJournalTakeProfit, draft))
		require.NoError(t, store.Set(ctx, userID, conversation.StepJournalResult, nil))

		st, err := store.Get(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, st)
		assert.Equal(t, conversation.StepJournalResult, st.Step)
		assert.Equal(t, conversation.FlowJournal, st.Flow())
		require.NotNil(t, st.Payload.Journal)
		assert.Equal(t, "EURUSD", st.Payload.Journal.Pair)
		require.NotNil(t, st.Payload.Journal.StopLoss)
		assert.True(t, st.Payload.Journal.StopLoss.Equal(sl))
	})

	t.Run("non-nil payload replaces wholesale", func(t *testing.T) {
		userID := newUser(t)
		require.NoError(t, store.Set(ctx, userID, conversation.StepJournalResult, &conversation.Payload{
			Journal: &conversation.JournalDraft{Pair: "EURUSD", Result: trade.ResultWin},
		}))
		require.NoError(t, store.Set(ctx, userID, conversation.StepTradeDeleteConfirm, &conversation.Payload{
			Manage: &conversation.ManageDraft{TradeID: 7},
		}))

		st, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, st.Payload.Journal)
		require.NotNil(t, st.Payload.Manage)
		assert.Equal(t, int64(7), st.Payload.Manage.TradeID)
	})

	t.Run("set without prior payload", func(t *testing.T) {
		userID := newUser(t)
		require.NoError(t, store.Set(ctx, userID, conversation.StepRegAge, nil))

		st, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, conversation.StepRegAge, st.Step)
		assert.True(t, st.Payload.IsEmpty())
	})

	t.Run("clear returns to idle", func(t *testing.T) {
		userID := newUser(t)
		require.NoError(t, store.Set(ctx, userID, conversation.StepTherapyActive, nil))
		require.NoError(t, store.Clear(ctx, userID))
		require.NoError(t, store.Clear(ctx, userID))

		st, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, st)
	})

	t.Run("unknown step rejected", func(t *testing.T) {
		err := store.Set(ctx, newUser(t), conversation.Step("registration_pet_name"), nil)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})
}
