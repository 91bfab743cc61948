package dialogue

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	"tradejournal/internal/repository/memory"
	"tradejournal/internal/services/analytics"
	"tradejournal/internal/services/coaching"
	"tradejournal/internal/services/ledger"
	"tradejournal/internal/services/menu_session"
	"tradejournal/internal/testsupport"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	alice int64 = 1001
	bob   int64 = 1002
	admin int64 = 9000
)

// fixed clock: Wednesday 2025-04-30 12:00 UTC
var testNow = time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC)

type mockDeliverer struct {
	mock.Mock
}

func (m *mockDeliverer) Deliver(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

type harness struct {
	engine    *Engine
	users     *memory.UserRepository
	trades    *memory.TradeRepository
	states    *memory.StateStore
	therapy   *memory.TherapyRepository
	cursor    *menu_session.Service
	deliverer *mockDeliverer
	unit      *testsupport.FlakyUnit
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.NewNop()
	now := func() time.Time { return testNow }

	h := &harness{
		users:     memory.NewUserRepository(),
		trades:    memory.NewTradeRepository(),
		states:    memory.NewStateStore(),
		therapy:   memory.NewTherapyRepository(),
		deliverer: &mockDeliverer{},
	}
	h.cursor = menu_session.NewService(memory.NewMenuSessionRepository(), 30*time.Minute, log)

	h.unit = testsupport.NewFlakyUnit(memory.NewUnitOfWork(h.users, h.trades))

	users := user.NewService(h.users)
	trades := trade.NewService(h.trades).WithClock(now)
	h.engine = NewEngine(Deps{
		Users:     users,
		Trades:    trades,
		Ledger:    ledger.NewService(h.unit, users, trades, log),
		States:    h.states,
		Therapy:   h.therapy,
		Analytics: analytics.NewService(trades, memory.NewReportRepository(), log),
		Coach:     coaching.NewCoach(nil, coaching.DefaultRetryConfig(), log),
		Cursor:    h.cursor,
		Deliverer: h.deliverer,
	}, Config{
		AdminIDs: []int64{admin},
		Now:      now,
	}, log)

	return h
}

func (h *harness) send(id int64, ev Event) []Response {
	ev.TelegramID = id
	if ev.DisplayName == "" {
		ev.DisplayName = "Test Trader"
	}
	return h.engine.Handle(context.Background(), ev)
}

func (h *harness) command(id int64, name string, args ...string) []Response {
	return h.send(id, Event{Kind: EventCommand, Command: name, Args: strings.Join(args, " ")})
}

func (h *harness) text(id int64, s string) []Response {
	return h.send(id, Event{Kind: EventText, Text: s})
}

func (h *harness) press(id int64, data string) []Response {
	return h.send(id, Event{Kind: EventCallback, Data: data})
}

func (h *harness) photo(id int64, fileID string) []Response {
	return h.send(id, Event{Kind: EventPhoto, FileID: fileID, Caption: "ignored"})
}

func (h *harness) user(t *testing.T, id int64) *user.User {
	t.Helper()
	u, err := h.users.GetByTelegramID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (h *harness) state(t *testing.T, id int64) *conversation.State {
	t.Helper()
	st, err := h.states.Get(context.Background(), h.user(t, id).ID)
	require.NoError(t, err)
	return st
}

func (h *harness) step(t *testing.T, id int64) conversation.Step {
	t.Helper()
	st := h.state(t, id)
	if st == nil {
		return ""
	}
	return st.Step
}

// register walks a personal account through the whole profile flow
func (h *harness) register(t *testing.T, id int64, balance string) {
	t.Helper()
	h.command(id, "start")
	h.text(id, "Jane Trader")
	h.text(id, "30")
	h.text(id, "2.5")
	h.press(id, token(tokenExperience, "Intermediate"))
	h.press(id, token(tokenAccountType, "Personal"))
	h.text(id, "500")
	h.text(id, balance)
	require.True(t, h.user(t, id).RegistrationComplete)
}

// journal logs a trade through the dialogue
func (h *harness) journal(t *testing.T, id int64, pair string, result trade.Result) {
	t.Helper()
	h.command(id, "journal")
	h.text(id, "today")
	h.text(id, pair)
	h.text(id, "25")
	h.text(id, "50")
	h.press(id, token(tokenResult, string(result)))
	if result == trade.ResultBreakeven {
		h.text(id, "1.5")
	}
	h.text(id, "skip")
	out := h.text(id, "followed the plan")
	require.Len(t, out, 1)
	require.Contains(t, out[0].Text, "Trade logged successfully")
}

func lastText(out []Response) string {
	if len(out) == 0 {
		return ""
	}
	return out[len(out)-1].Text
}

func buttonData(out []Response) []string {
	var data []string
	for _, r := range out {
		for _, row := range r.Buttons {
			for _, b := range row {
				data = append(data, b.Data)
			}
		}
	}
	return data
}

func TestRegistration(t *testing.T) {
	t.Run("personal account", func(t *testing.T) {
		h := newHarness(t)

		out := h.command(alice, "start")
		assert.Contains(t, lastText(out), "Hello Test!")
		assert.Equal(t, conversation.StepRegFullName, h.step(t, alice))

		h.text(alice, "Jane Trader")
		h.text(alice, "30")
		out = h.text(alice, "2.5")
		assert.Equal(t, conversation.StepRegExperience, h.step(t, alice))
		assert.Contains(t, buttonData(out), "reg_exp:Beginner")

		h.press(alice, "reg_exp:Advanced")
		h.press(alice, "reg_acct:Personal")
		assert.Equal(t, conversation.StepRegProfitTarget, h.step(t, alice))

		h.text(alice, "$1,000")
		out = h.text(alice, "2,500.50")
		assert.Contains(t, lastText(out), "Great! Your profile is now complete.")

		u := h.user(t, alice)
		assert.True(t, u.RegistrationComplete)
		assert.Equal(t, "Jane Trader", u.FullName)
		assert.Equal(t, 30, u.Age)
		assert.Equal(t, 2.5, u.TradingYears)
		assert.Equal(t, user.ExperienceAdvanced, u.ExperienceLevel)
		assert.Nil(t, u.Phase)
		assert.True(t, u.ProfitTarget.Equal(decimal.NewFromInt(1000)))
		assert.True(t, u.Balance().Equal(decimal.RequireFromString("2500.50")))
		assert.Nil(t, h.state(t, alice))
	})

	t.Run("funded account asks for phase", func(t *testing.T) {
		h := newHarness(t)

		h.command(alice, "start")
		h.text(alice, "Jane")
		h.text(alice, "41")
		h.text(alice, "0")
		h.press(alice, "reg_exp:Beginner")
		out := h.press(alice, "reg_acct:Funded")
		assert.Equal(t, conversation.StepRegPhase, h.step(t, alice))
		assert.Contains(t, buttonData(out), "reg_phase:Phase 2")

		h.press(alice, "reg_phase:Phase 2")
		h.text(alice, "800")
		h.text(alice, "10000")

		u := h.user(t, alice)
		require.NotNil(t, u.Phase)
		assert.Equal(t, user.Phase2, *u.Phase)
		assert.Equal(t, "Funded - Phase 2", u.AccountLabel())
	})

	t.Run("invalid input re-prompts the same step", func(t *testing.T) {
		h := newHarness(t)
		h.command(alice, "start")
		h.text(alice, "Jane")

		assert.Equal(t, msgInvalidAge, lastText(h.text(alice, "abc")))
		assert.Equal(t, msgInvalidAge, lastText(h.text(alice, "0")))
		assert.Equal(t, msgInvalidAge, lastText(h.text(alice, "121")))
		assert.Equal(t, conversation.StepRegAge, h.step(t, alice))
		assert.Zero(t, h.user(t, alice).Age)

		h.text(alice, "30")
		assert.Equal(t, msgInvalidYears, lastText(h.text(alice, "-1")))
		h.text(alice, "3")

		// typed text on a choice step shows the buttons again
		out := h.text(alice, "Advanced")
		assert.Contains(t, lastText(out), msgChooseOption)
		assert.Contains(t, buttonData(out), "reg_exp:Advanced")
		assert.Equal(t, conversation.StepRegExperience, h.step(t, alice))

		// a button from another step is stale
		assert.Equal(t, msgExpiredButton, lastText(h.press(alice, "reg_acct:Personal")))
		assert.Equal(t, conversation.StepRegExperience, h.step(t, alice))

		h.press(alice, "reg_exp:Advanced")
		h.press(alice, "reg_acct:Personal")
		assert.Equal(t, msgInvalidTarget, lastText(h.text(alice, "-5")))
		h.text(alice, "500")
		assert.Equal(t, msgInvalidBalance, lastText(h.text(alice, "0")))
		assert.False(t, h.user(t, alice).RegistrationComplete)
	})

	t.Run("start for a registered user says welcome back", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")
		h.command(alice, "journal")

		out := h.command(alice, "start")
		assert.Contains(t, lastText(out), "Welcome back Jane Trader!")
		assert.Nil(t, h.state(t, alice))
	})
}

func TestRegistrationGate(t *testing.T) {
	h := newHarness(t)

	out := h.command(alice, "journal")
	assert.Contains(t, lastText(out), msgRegisterFirst)
	assert.Equal(t, conversation.StepRegFullName, h.step(t, alice))

	h.text(alice, "Jane")
	out = h.command(alice, "stats")
	assert.Contains(t, lastText(out), msgAskAge)
	assert.Equal(t, conversation.StepRegAge, h.step(t, alice))

	// navigation buttons are gated too
	h.press(alice, "trades:next")
	assert.Equal(t, conversation.StepRegAge, h.step(t, alice))
	assert.Equal(t, 0, h.trades.Count())
}

func TestIdleInput(t *testing.T) {
	h := newHarness(t)
	h.register(t, alice, "1000")

	assert.Equal(t, msgIdleHint, lastText(h.text(alice, "hello?")))
	assert.Equal(t, msgIdleHint, lastText(h.photo(alice, "file-1")))
	assert.Equal(t, msgExpiredButton, lastText(h.press(alice, "result:Win")))
	assert.Equal(t, msgUnknownCommand, lastText(h.command(alice, "leverage")))
	assert.Equal(t, msgNothingToCancel, lastText(h.command(alice, "cancel")))
	assert.Nil(t, h.state(t, alice))
}

func TestHelpKeepsState(t *testing.T) {
	h := newHarness(t)
	h.register(t, alice, "1000")
	h.command(alice, "journal")
	h.text(alice, "today")

	out := h.command(alice, "help")
	assert.Contains(t, lastText(out), "/journal")
	assert.Equal(t, conversation.StepJournalPair, h.step(t, alice))
}

func TestJournal(t *testing.T) {
	t.Run("win moves the balance by take profit", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")

		h.command(alice, "journal")
		h.text(alice, "2025-04-29")
		h.text(alice, "eurusd")
		h.text(alice, "$25")
		out := h.text(alice, "50")
		assert.Contains(t, buttonData(out), "result:Win")

		h.press(alice, "result:Win")
		assert.Equal(t, conversation.StepJournalScreenshot, h.step(t, alice))
		h.photo(alice, "photo-123")
		assert.Equal(t, msgNotesRequired, lastText(h.text(alice, "  ")))

		out = h.text(alice, "clean breakout")
		require.Len(t, out, 1)
		assert.True(t, out[0].Markdown)
		assert.Contains(t, out[0].Text, "P/L: +$50.00")
		assert.Contains(t, out[0].Text, "Current Balance: $1,050.00")

		trades, err := h.trades.ListByUser(context.Background(), h.user(t, alice).ID)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		tr := trades[0]
		assert.Equal(t, "EURUSD", tr.PairTraded)
		assert.Equal(t, "2025-04-29", tr.DateString())
		assert.Equal(t, trade.ResultWin, tr.Result)
		assert.True(t, tr.PnL().Equal(decimal.NewFromInt(50)))
		require.True(t, tr.HasScreenshot())
		assert.Equal(t, "photo-123", *tr.ScreenshotID)
		assert.Equal(t, "clean breakout", tr.Notes)

		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1050)))
		assert.Nil(t, h.state(t, alice))
	})

	t.Run("loss and breakeven", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")

		h.journal(t, alice, "GBPUSD", trade.ResultLoss)
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(975)))

		h.journal(t, alice, "XAUUSD", trade.ResultBreakeven)
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.RequireFromString("976.5")))
	})

	t.Run("bad input keeps the draft", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")
		h.command(alice, "journal")

		assert.Equal(t, msgInvalidDate, lastText(h.text(alice, "29/04/2025")))
		assert.Equal(t, msgFutureDate, lastText(h.text(alice, "2025-05-01")))
		assert.Equal(t, conversation.StepJournalDate, h.step(t, alice))

		h.text(alice, "TODAY")
		h.text(alice, "btcusd")
		assert.Equal(t, msgInvalidStopLoss, lastText(h.text(alice, "-10")))
		h.text(alice, "10")
		assert.Equal(t, msgInvalidTakeProf, lastText(h.text(alice, "zero")))
		h.text(alice, "20")

		out := h.text(alice, "Win")
		assert.Contains(t, lastText(out), msgChooseOption)
		assert.Equal(t, conversation.StepJournalResult, h.step(t, alice))

		draft := h.state(t, alice).Payload.Journal
		require.NotNil(t, draft)
		assert.Equal(t, "2025-04-30", draft.Date)
		assert.Equal(t, "BTCUSD", draft.Pair)
		require.NotNil(t, draft.StopLoss)
		assert.True(t, draft.StopLoss.Equal(decimal.NewFromInt(10)))

		h.press(alice, "result:Breakeven")
		assert.Equal(t, msgInvalidBreakeven, lastText(h.text(alice, "a bit")))
		h.text(alice, "-0.75")
		assert.Equal(t, msgInvalidShot, lastText(h.text(alice, "no")))
		h.press(alice, "skip:screenshot")
		assert.Equal(t, conversation.StepJournalNotes, h.step(t, alice))
		assert.Equal(t, 0, h.trades.Count())
	})

	t.Run("a command abandons the draft", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")
		h.command(alice, "journal")
		h.text(alice, "today")

		assert.Equal(t, msgCancelled, lastText(h.command(alice, "cancel")))
		assert.Nil(t, h.state(t, alice))
		assert.Equal(t, 0, h.trades.Count())
	})
}

func TestTradeList(t *testing.T) {
	h := newHarness(t)
	h.register(t, alice, "1000")

	assert.Equal(t, msgNoTrades, lastText(h.command(alice, "trades")))

	for i := 0; i < 7; i++ {
		h.journal(t, alice, "EURUSD", trade.ResultWin)
	}

	out := h.command(alice, "trades")
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "page 1 of 2, 7 total")
	assert.Contains(t, out[0].Text, "#7 |")
	assert.NotContains(t, out[0].Text, "#2 |")
	data := buttonData(out)
	assert.Contains(t, data, "trades:view:7")
	assert.Contains(t, data, "trades:next")
	assert.NotContains(t, data, "trades:prev")

	out = h.press(alice, "trades:next")
	assert.Contains(t, lastText(out), "page 2 of 2")
	assert.Contains(t, buttonData(out), "trades:prev")
	page, err := h.cursor.CurrentPage(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 2, page)

	// the cursor is clamped at the last page
	out = h.press(alice, "trades:next")
	assert.Contains(t, lastText(out), "page 2 of 2")

	out = h.press(alice, "trades:prev")
	assert.Contains(t, lastText(out), "page 1 of 2")

	// /trades resets to the first page
	h.press(alice, "trades:next")
	out = h.command(alice, "trades")
	assert.Contains(t, lastText(out), "page 1 of 2")
}

func TestTradeView(t *testing.T) {
	h := newHarness(t)
	h.register(t, alice, "1000")
	h.register(t, bob, "1000")
	h.journal(t, alice, "EURUSD", trade.ResultWin)

	h.command(alice, "journal")
	h.text(alice, "today")
	h.text(alice, "gbpjpy")
	h.text(alice, "10")
	h.text(alice, "30")
	h.press(alice, "result:Loss")
	h.photo(alice, "chart-file")
	h.text(alice, "chased the move")

	out := h.command(alice, "trades", "view", "2")
	require.Len(t, out, 2)
	assert.Contains(t, out[0].Text, "Trade #2")
	assert.Contains(t, out[0].Text, "GBPJPY")
	assert.Equal(t, "chart-file", out[1].PhotoFileID)

	out = h.press(alice, "trades:view:1")
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "Trade #1")

	// sub-flow asking for the id
	assert.Equal(t, msgAskViewID, lastText(h.command(alice, "trades", "view")))
	assert.Equal(t, msgInvalidTradeID, lastText(h.text(alice, "first")))
	assert.Equal(t, conversation.StepTradeViewID, h.step(t, alice))
	out = h.text(alice, "#1")
	assert.Contains(t, out[0].Text, "Trade #1")
	assert.Nil(t, h.state(t, alice))

	// a foreign trade looks exactly like a missing one
	assert.Equal(t, "Trade #1 not found.", lastText(h.command(bob, "trades", "view", "1")))
	assert.Equal(t, "Trade #99 not found.", lastText(h.command(bob, "trades", "view", "99")))
	assert.Nil(t, h.state(t, bob))
}

func TestTradeEdit(t *testing.T) {
	t.Run("result change re-derives and shifts the balance", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")
		h.journal(t, alice, "EURUSD", trade.ResultWin)
		require.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1050)))

		out := h.command(alice, "trades", "edit", "1")
		assert.Contains(t, buttonData(out), "edit_field:result")
		assert.Equal(t, conversation.StepTradeEditField, h.step(t, alice))

		out = h.press(alice, "edit_field:result")
		assert.Contains(t, buttonData(out), "result:Loss")
		out = h.press(alice, "result:Loss")
		assert.Contains(t, lastText(out), "Trade #1 updated")

		tr, err := h.trades.GetForUser(context.Background(), h.user(t, alice).ID, 1)
		require.NoError(t, err)
		assert.Equal(t, trade.ResultLoss, tr.Result)
		assert.True(t, tr.PnL().Equal(decimal.NewFromInt(-25)))
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(975)))
		assert.Nil(t, h.state(t, alice))
	})

	t.Run("breakeven asks for the amount", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")
		h.journal(t, alice, "EURUSD", trade.ResultLoss)

		h.press(alice, "trades:edit:1")
		h.press(alice, "edit_field:result")
		h.press(alice, "result:Breakeven")
		assert.Equal(t, conversation.StepTradeEditPnL, h.step(t, alice))
		h.text(alice, "2")

		tr, err := h.trades.GetForUser(context.Background(), h.user(t, alice).ID, 1)
		require.NoError(t, err)
		assert.Equal(t, trade.ResultBreakeven, tr.Result)
		assert.True(t, tr.PnL().Equal(decimal.NewFromInt(2)))
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1002)))
	})

	t.Run("take profit change on a win", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")
		h.journal(t, alice, "EURUSD", trade.ResultWin)

		h.command(alice, "trades", "edit", "1")
		h.press(alice, "edit_field:tp")
		assert.Equal(t, msgInvalidTakeProf, lastText(h.text(alice, "0")))
		h.text(alice, "80")

		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1080)))
	})

	t.Run("notes and pair leave the balance alone", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")
		h.journal(t, alice, "EURUSD", trade.ResultWin)

		h.command(alice, "trades", "edit", "1")
		h.press(alice, "edit_field:pair")
		h.text(alice, "usdjpy")
		h.command(alice, "trades", "edit", "1")
		h.press(alice, "edit_field:notes")
		h.text(alice, "revised notes")

		tr, err := h.trades.GetForUser(context.Background(), h.user(t, alice).ID, 1)
		require.NoError(t, err)
		assert.Equal(t, "USDJPY", tr.PairTraded)
		assert.Equal(t, "revised notes", tr.Notes)
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1050)))
	})
}

func TestTradeDelete(t *testing.T) {
	h := newHarness(t)
	h.register(t, alice, "1000")
	h.journal(t, alice, "EURUSD", trade.ResultWin)

	out := h.command(alice, "trades", "delete", "1")
	assert.Contains(t, buttonData(out), "confirm:yes")
	assert.Equal(t, msgDeletionCanceled, lastText(h.press(alice, "confirm:no")))
	assert.Equal(t, 1, h.trades.Count())
	assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1050)))

	h.command(alice, "trades", "delete")
	h.text(alice, "1")
	assert.Equal(t, conversation.StepTradeDeleteConfirm, h.step(t, alice))
	assert.Contains(t, lastText(h.text(alice, "maybe")), msgChooseOption)

	out = h.press(alice, "confirm:yes")
	assert.Equal(t, "Trade #1 deleted. Current balance: $1,000.00", lastText(out))
	assert.Equal(t, 0, h.trades.Count())
	assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1000)))
	assert.Nil(t, h.state(t, alice))
}

func TestTradeWritesAreAtomic(t *testing.T) {
	t.Run("journal commit keeps the draft when the balance write fails", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")

		h.command(alice, "journal")
		h.text(alice, "today")
		h.text(alice, "EURUSD")
		h.text(alice, "25")
		h.text(alice, "50")
		h.press(alice, "result:Win")
		h.text(alice, "skip")

		h.unit.FailUserUpdates(1)
		assert.Equal(t, msgSomethingWrong, lastText(h.text(alice, "followed the plan")))
		assert.Equal(t, conversation.StepJournalNotes, h.step(t, alice))
		assert.Equal(t, 0, h.trades.Count())
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1000)))

		out := h.text(alice, "followed the plan")
		assert.Contains(t, lastText(out), "Trade logged successfully")
		assert.Equal(t, 1, h.trades.Count())
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1050)))
		assert.Nil(t, h.state(t, alice))
	})

	t.Run("edit retry applies the full delta", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")
		h.journal(t, alice, "EURUSD", trade.ResultWin)

		h.command(alice, "trades", "edit", "1")
		h.press(alice, "edit_field:result")

		h.unit.FailUserUpdates(1)
		assert.Equal(t, msgSomethingWrong, lastText(h.press(alice, "result:Loss")))
		assert.Equal(t, conversation.StepTradeEditValue, h.step(t, alice))

		tr, err := h.trades.GetForUser(context.Background(), h.user(t, alice).ID, 1)
		require.NoError(t, err)
		assert.Equal(t, trade.ResultWin, tr.Result)
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1050)))

		assert.Contains(t, lastText(h.press(alice, "result:Loss")), "Trade #1 updated")
		tr, err = h.trades.GetForUser(context.Background(), h.user(t, alice).ID, 1)
		require.NoError(t, err)
		assert.True(t, tr.PnL().Equal(decimal.NewFromInt(-25)))
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(975)))
	})

	t.Run("delete keeps the trade when the balance write fails", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")
		h.journal(t, alice, "EURUSD", trade.ResultWin)

		h.command(alice, "trades", "delete", "1")
		h.unit.FailUserUpdates(1)
		assert.Equal(t, msgSomethingWrong, lastText(h.press(alice, "confirm:yes")))
		assert.Equal(t, conversation.StepTradeDeleteConfirm, h.step(t, alice))
		assert.Equal(t, 1, h.trades.Count())
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1050)))

		assert.Equal(t, "Trade #1 deleted. Current balance: $1,000.00", lastText(h.press(alice, "confirm:yes")))
		assert.Equal(t, 0, h.trades.Count())
		assert.True(t, h.user(t, alice).Balance().Equal(decimal.NewFromInt(1000)))
	})
}

func TestBroadcast(t *testing.T) {
	t.Run("non operators are rejected", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, alice, "1000")

		assert.Equal(t, msgNotAdmin, lastText(h.command(alice, "broadcast")))
		assert.Nil(t, h.state(t, alice))
		h.deliverer.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delivers to registered users and tallies failures", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, admin, "1000")
		h.register(t, alice, "1000")
		h.command(bob, "start") // never finishes registration

		msg := "Markets closed Monday"
		h.deliverer.On("Deliver", mock.Anything, admin, msg).Return(nil).Once()
		h.deliverer.On("Deliver", mock.Anything, alice, msg).Return(errors.New("blocked by user")).Once()

		assert.Equal(t, msgAskBroadcast, lastText(h.command(admin, "broadcast")))
		out := h.text(admin, msg)
		assert.Contains(t, lastText(out), msg)
		assert.Contains(t, buttonData(out), "confirm:yes")

		out = h.press(admin, "confirm:yes")
		assert.Equal(t, "Broadcast complete: 1 sent, 1 failed", lastText(out))
		assert.Nil(t, h.state(t, admin))
		h.deliverer.AssertExpectations(t)
		h.deliverer.AssertNumberOfCalls(t, "Deliver", 2)
	})

	t.Run("declining sends nothing", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, admin, "1000")

		h.command(admin, "broadcast")
		assert.Equal(t, msgEmptyMessage, lastText(h.photo(admin, "file")))
		h.text(admin, "hello all")
		assert.Equal(t, msgBroadcastAborted, lastText(h.press(admin, "confirm:no")))
		h.deliverer.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBroadcastTally(t *testing.T) {
	tests := []struct {
		name      string
		failing   []int64
		wantTally string
	}{
		{
			name:      "failures in the middle of the loop",
			failing:   []int64{2003, 2006},
			wantTally: "Broadcast complete: 8 sent, 2 failed",
		},
		{
			name:      "first and last recipients fail",
			failing:   []int64{admin, 2009},
			wantTally: "Broadcast complete: 8 sent, 2 failed",
		},
		{
			name:      "every delivery succeeds",
			wantTally: "Broadcast complete: 10 sent, 0 failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			recipients := []int64{admin}
			h.register(t, admin, "1000")
			for id := int64(2001); id <= 2009; id++ {
				h.register(t, id, "1000")
				recipients = append(recipients, id)
			}
			require.Len(t, recipients, 10)

			failing := make(map[int64]bool, len(tt.failing))
			for _, id := range tt.failing {
				failing[id] = true
			}

			msg := "Desk closes early Friday"
			for _, id := range recipients {
				var err error
				if failing[id] {
					err = errors.New("bot was blocked by the user")
				}
				h.deliverer.On("Deliver", mock.Anything, id, msg).Return(err).Once()
			}

			h.command(admin, "broadcast")
			h.text(admin, msg)
			out := h.press(admin, "confirm:yes")

			assert.Equal(t, tt.wantTally, lastText(out))
			h.deliverer.AssertNumberOfCalls(t, "Deliver", 10)
			h.deliverer.AssertExpectations(t)
			assert.Nil(t, h.state(t, admin))

			// every recipient is visited in snapshot order, failures included
			order, err := h.users.ListRegistered(context.Background())
			require.NoError(t, err)
			require.Len(t, h.deliverer.Calls, len(order))
			for i, u := range order {
				assert.Equal(t, u.TelegramID, h.deliverer.Calls[i].Arguments.Get(1))
			}
		})
	}
}

func TestTherapy(t *testing.T) {
	h := newHarness(t)
	h.register(t, alice, "1000")

	assert.Equal(t, msgTherapyWelcome, lastText(h.command(alice, "therapy")))
	assert.Equal(t, conversation.StepTherapyActive, h.step(t, alice))

	assert.Equal(t, coaching.CannedTherapyReply, lastText(h.text(alice, "I keep revenge trading")))
	h.text(alice, "especially after a loss")
	assert.Equal(t, msgTherapyTextOnly, lastText(h.photo(alice, "file")))
	assert.Equal(t, conversation.StepTherapyActive, h.step(t, alice))

	uid := h.user(t, alice).ID
	session, err := h.therapy.Latest(context.Background(), uid)
	require.NoError(t, err)
	require.Len(t, session.Content, 4)
	assert.Equal(t, "I keep revenge trading", session.Content[0].User)
	assert.Equal(t, coaching.CannedTherapyReply, session.Content[1].AI)

	// a later /therapy continues the same transcript
	h.command(alice, "therapy")
	h.text(alice, "back again")
	assert.Equal(t, 1, h.therapy.Sessions(uid))

	assert.Equal(t, msgTherapyEnded, lastText(h.command(alice, "cancel")))
	assert.Nil(t, h.state(t, alice))
}

func TestInsights(t *testing.T) {
	h := newHarness(t)
	h.register(t, alice, "1000")

	assert.Equal(t, msgNoTrades, lastText(h.command(alice, "stats")))
	assert.Equal(t, msgNoTrades, lastText(h.command(alice, "summary")))
	assert.Equal(t, msgNoTradesThisWeek, lastText(h.command(alice, "report")))

	h.journal(t, alice, "EURUSD", trade.ResultWin)
	h.journal(t, alice, "EURUSD", trade.ResultLoss)

	out := h.command(alice, "stats")
	assert.Contains(t, lastText(out), "Total Trades: 2")
	assert.Contains(t, lastText(out), "Net Profit/Loss: $25.00")

	assert.Equal(t, coaching.CannedSummary, lastText(h.command(alice, "summary")))

	out = h.command(alice, "report")
	assert.Contains(t, lastText(out), "Week: 2025-04-28 to 2025-05-04")
	assert.Contains(t, lastText(out), "Total Trades: 2")
}

func TestMalformedStateIsReset(t *testing.T) {
	h := newHarness(t)
	h.register(t, alice, "1000")
	uid := h.user(t, alice).ID

	h.states.PutRaw(uid, "journal_leverage", nil)
	assert.Equal(t, msgStateReset, lastText(h.text(alice, "10")))
	assert.Nil(t, h.state(t, alice))

	// a journal step without its draft cannot continue
	h.states.PutRaw(uid, string(conversation.StepJournalNotes), []byte(`{}`))
	assert.Equal(t, msgStateReset, lastText(h.text(alice, "notes")))
	assert.Equal(t, 0, h.trades.Count())

	// commands still run over an unreadable record
	h.states.PutRaw(uid, "bogus", nil)
	assert.Contains(t, lastText(h.command(alice, "journal")), "Let's journal a new trade")
	assert.Equal(t, conversation.StepJournalDate, h.step(t, alice))
}

func TestPanicLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	h.register(t, admin, "1000")
	h.deliverer.On("Deliver", mock.Anything, admin, "boom").Run(func(mock.Arguments) {
		panic("transport exploded")
	})

	h.command(admin, "broadcast")
	h.text(admin, "boom")

	assert.Equal(t, msgSomethingWrong, lastText(h.press(admin, "confirm:yes")))
	assert.Equal(t, conversation.StepBroadcastConfirm, h.step(t, admin))
}
