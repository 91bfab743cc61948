package dialogue

import (
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/trade"
	"tradejournal/internal/events"
	"tradejournal/internal/metrics"
	"tradejournal/pkg/errors"
)

type tradeSummary struct {
	Trade   *trade.Trade
	Balance decimal.Decimal
}

func resultButtons() [][]Button {
	values := make([]string, 0, len(trade.Results))
	for _, r := range trade.Results {
		values = append(values, string(r))
	}
	return choiceRows(tokenResult, values...)
}

func skipButton() [][]Button {
	return [][]Button{{{Label: "Skip", Data: token(tokenSkip, "screenshot")}}}
}

func (e *Engine) startJournal(t *turn) ([]Response, error) {
	payload := &conversation.Payload{Journal: &conversation.JournalDraft{}}
	if err := e.set(t, conversation.StepJournalDate, payload); err != nil {
		return nil, err
	}
	return text(msgAskDate), nil
}

// saveDraft stores the updated draft and moves on
func (e *Engine) saveDraft(t *turn, next conversation.Step, draft *conversation.JournalDraft, out []Response) ([]Response, error) {
	if err := e.set(t, next, &conversation.Payload{Journal: draft}); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) journalStep(t *turn) ([]Response, error) {
	step := t.state.Step
	draft := t.payload().Journal
	if draft == nil {
		return nil, errors.Wrapf(errors.ErrMalformedState, "journal step %s without draft", step)
	}

	choiceStep := step == conversation.StepJournalResult || step == conversation.StepJournalScreenshot
	if t.in.callback && !choiceStep {
		return t.invalid(text(msgExpiredButton)), nil
	}

	switch step {
	case conversation.StepJournalDate:
		date, err := parseDate(t.in.text, e.today())
		switch {
		case errors.Is(err, errFutureDate):
			return t.invalid(text(msgFutureDate)), nil
		case err != nil:
			return t.invalid(text(msgInvalidDate)), nil
		}
		draft.Date = date.Format(trade.DateLayout)
		return e.saveDraft(t, conversation.StepJournalPair, draft, text(msgAskPair))

	case conversation.StepJournalPair:
		if t.in.text == "" {
			return t.invalid(text(msgInvalidPair)), nil
		}
		draft.Pair = normalisePair(t.in.text)
		return e.saveDraft(t, conversation.StepJournalStopLoss, draft, text(msgAskStopLoss))

	case conversation.StepJournalStopLoss:
		sl, ok := parsePositive(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidStopLoss)), nil
		}
		draft.StopLoss = &sl
		return e.saveDraft(t, conversation.StepJournalTakeProfit, draft, text(msgAskTakeProfit))

	case conversation.StepJournalTakeProfit:
		tp, ok := parsePositive(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidTakeProf)), nil
		}
		draft.TakeProfit = &tp
		return e.saveDraft(t, conversation.StepJournalResult, draft, withButtons(msgAskResult, resultButtons()))

	case conversation.StepJournalResult:
		v, out := pick(t, tokenResult, msgAskResult, resultButtons())
		if out != nil {
			return out, nil
		}
		result, ok := trade.ParseResult(v)
		if !ok {
			return t.invalid(text(msgExpiredButton)), nil
		}
		draft.Result = result
		draft.BreakevenAmount = nil
		if result == trade.ResultBreakeven {
			return e.saveDraft(t, conversation.StepJournalBreakevenAmount, draft, text(msgAskBreakevenPnL))
		}
		return e.saveDraft(t, conversation.StepJournalScreenshot, draft, withButtons(msgAskScreenshot, skipButton()))

	case conversation.StepJournalBreakevenAmount:
		amount, ok := parseAmount(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidBreakeven)), nil
		}
		draft.BreakevenAmount = &amount
		return e.saveDraft(t, conversation.StepJournalScreenshot, draft, withButtons(msgAskScreenshot, skipButton()))

	case conversation.StepJournalScreenshot:
		_, skipped := t.in.choice(tokenSkip)
		switch {
		case t.in.photo != "":
			draft.ScreenshotID = t.in.photo
		case skipped || isWord(t.in.text, "skip"):
			draft.ScreenshotID = ""
		case t.in.callback:
			return t.invalid(text(msgExpiredButton)), nil
		default:
			return t.invalid(withButtons(msgInvalidShot, skipButton())), nil
		}
		return e.saveDraft(t, conversation.StepJournalNotes, draft, text(msgAskNotes))

	case conversation.StepJournalNotes:
		if t.in.text == "" {
			return t.invalid(text(msgNotesRequired)), nil
		}
		return e.commitTrade(t, draft, t.in.text)
	}

	return nil, errors.Wrapf(errors.ErrMalformedState, "journal step %q", step)
}

// commitTrade stores the trade and moves the balance in one unit, then
// confirms. The state is cleared only after the unit commits.
func (e *Engine) commitTrade(t *turn, draft *conversation.JournalDraft, notes string) ([]Response, error) {
	tr, err := draftTrade(draft)
	if err != nil {
		return nil, err
	}
	tr.UserID = t.user.ID
	tr.Notes = notes

	if err := e.ledger.Log(t.ctx, t.user, tr); err != nil {
		if errors.Is(err, errors.ErrInvalidInput) {
			// the draft went stale, e.g. the date check against a later clock
			return nil, errors.Wrap(errors.ErrMalformedState, err.Error())
		}
		return nil, err
	}
	metrics.TradesLogged.WithLabelValues("logged").Inc()

	e.publishTradeLogged(t, tr)

	if err := e.clear(t); err != nil {
		return nil, err
	}

	resp, err := e.render("trade_logged", tradeSummary{Trade: tr, Balance: t.user.Balance()})
	if err != nil {
		return nil, err
	}
	return []Response{resp}, nil
}

// draftTrade builds a trade from a finished draft
func draftTrade(d *conversation.JournalDraft) (*trade.Trade, error) {
	if d.StopLoss == nil || d.TakeProfit == nil || d.Result == "" || d.Pair == "" {
		return nil, errors.Wrap(errors.ErrMalformedState, "incomplete journal draft")
	}
	date, err := time.ParseInLocation(trade.DateLayout, d.Date, time.UTC)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedState, "draft date %q", d.Date)
	}

	breakeven := decimal.Zero
	if d.BreakevenAmount != nil {
		breakeven = *d.BreakevenAmount
	}
	pnl := trade.DeriveProfitLoss(d.Result, *d.StopLoss, *d.TakeProfit, breakeven)

	tr := &trade.Trade{
		Date:       date,
		PairTraded: d.Pair,
		StopLoss:   *d.StopLoss,
		TakeProfit: *d.TakeProfit,
		Result:     d.Result,
		ProfitLoss: decimal.NewNullDecimal(pnl),
	}
	if d.ScreenshotID != "" {
		shot := d.ScreenshotID
		tr.ScreenshotID = &shot
	}
	return tr, nil
}

// publishTradeLogged emits the event; a broker outage never fails the turn
func (e *Engine) publishTradeLogged(t *turn, tr *trade.Trade) {
	event := events.TradeLoggedEvent{
		BaseEvent:  events.NewBaseEvent(events.TypeTradeLogged, t.user.ID.String()),
		TradeID:    tr.ID,
		TelegramID: t.user.TelegramID,
		Pair:       tr.PairTraded,
		Result:     string(tr.Result),
		ProfitLoss: tr.PnL(),
		Balance:    t.user.Balance(),
		TradeDate:  tr.DateString(),
	}
	if err := e.events.PublishTradeLogged(t.ctx, event); err != nil {
		t.log.Warnw("Failed to publish trade logged event", "trade_id", tr.ID, "error", err)
	}
}
