package dialogue

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/trade"
	"tradejournal/internal/metrics"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/templates"
)

const (
	tradeActionView   = "view"
	tradeActionEdit   = "edit"
	tradeActionDelete = "delete"
)

var editFieldLabels = map[conversation.EditField]string{
	conversation.EditDate:       "Date",
	conversation.EditPair:       "Pair",
	conversation.EditStopLoss:   "Stop Loss",
	conversation.EditTakeProfit: "Take Profit",
	conversation.EditResult:     "Result",
	conversation.EditNotes:      "Notes",
}

var editFieldPrompts = map[conversation.EditField]string{
	conversation.EditDate:       "Send the new trade date as YYYY-MM-DD, or 'today'.",
	conversation.EditPair:       "Send the new pair (e.g., EURUSD).",
	conversation.EditStopLoss:   "Send the new stop loss amount in USD.",
	conversation.EditTakeProfit: "Send the new take profit amount in USD.",
	conversation.EditResult:     "Choose the new result.",
	conversation.EditNotes:      msgAskNewNotes,
}

func editFieldButtons() [][]Button {
	rows := make([][]Button, 0, (len(conversation.EditFields)+1)/2)
	for i := 0; i < len(conversation.EditFields); i += 2 {
		row := []Button{}
		for _, f := range conversation.EditFields[i:min(i+2, len(conversation.EditFields))] {
			row = append(row, Button{Label: editFieldLabels[f], Data: token(tokenEditField, string(f))})
		}
		rows = append(rows, row)
	}
	return rows
}

func confirmButtons() [][]Button {
	return [][]Button{{
		{Label: "Yes", Data: token(tokenConfirm, "yes")},
		{Label: "No", Data: token(tokenConfirm, "no")},
	}}
}

func tradeAction(action string, id int64) string {
	return token(tokenTrades, fmt.Sprintf("%s:%d", action, id))
}

func tradeNotFound(id int64) []Response {
	return textf("Trade #%d not found.", id)
}

// tradesCommand handles /trades [view|edit|delete [id]]
func (e *Engine) tradesCommand(t *turn) ([]Response, error) {
	args := strings.Fields(strings.ToLower(t.ev.Args))
	if len(args) == 0 {
		return e.listTrades(t, 1)
	}

	action := args[0]
	if action != tradeActionView && action != tradeActionEdit && action != tradeActionDelete {
		return text("Usage: /trades, or /trades view|edit|delete followed by a trade number."), nil
	}

	if len(args) > 1 {
		id, ok := parseTradeID(args[1])
		if !ok {
			return t.invalid(text(msgInvalidTradeID)), nil
		}
		return e.tradeAction(t, action, id)
	}
	return e.askTradeID(t, action)
}

// tradesNavigation handles list buttons. They pre-empt the current step the
// way a command does.
func (e *Engine) tradesNavigation(t *turn) ([]Response, error) {
	if !t.user.RegistrationComplete {
		return e.gate(t)
	}

	action, rawID, _ := strings.Cut(t.in.value, ":")
	switch action {
	case "next", "prev":
		page, err := e.cursor.CurrentPage(t.ctx, t.user.TelegramID)
		if err != nil {
			return nil, errors.Wrap(err, "load page cursor")
		}
		if action == "next" {
			page++
		} else {
			page--
		}
		return e.listTrades(t, page)
	case tradeActionView, tradeActionEdit, tradeActionDelete:
		if rawID == "" {
			return e.askTradeID(t, action)
		}
		id, ok := parseTradeID(rawID)
		if !ok {
			return t.invalid(text(msgExpiredButton)), nil
		}
		return e.tradeAction(t, action, id)
	default:
		return t.invalid(text(msgExpiredButton)), nil
	}
}

func (e *Engine) listTrades(t *turn, page int) ([]Response, error) {
	if err := e.clear(t); err != nil {
		return nil, err
	}

	p, err := e.trades.Page(t.ctx, t.user.ID, page)
	if err != nil {
		return nil, err
	}
	if p.Total == 0 {
		if err := e.cursor.Reset(t.ctx, t.user.TelegramID); err != nil {
			return nil, errors.Wrap(err, "reset page cursor")
		}
		return text(msgNoTrades), nil
	}
	if err := e.cursor.SetPage(t.ctx, t.user.TelegramID, p.Page); err != nil {
		return nil, errors.Wrap(err, "store page cursor")
	}

	resp, err := e.render("trade_list", p)
	if err != nil {
		return nil, err
	}
	resp.Buttons = tradeListButtons(p)
	return []Response{resp}, nil
}

func tradeListButtons(p trade.Page) [][]Button {
	rows := make([][]Button, 0, len(p.Trades)+1)
	for _, tr := range p.Trades {
		rows = append(rows, []Button{
			{Label: fmt.Sprintf("#%d %s", tr.ID, tr.PairTraded), Data: tradeAction(tradeActionView, tr.ID)},
			{Label: "Edit", Data: tradeAction(tradeActionEdit, tr.ID)},
			{Label: "Delete", Data: tradeAction(tradeActionDelete, tr.ID)},
		})
	}

	var nav []Button
	if p.HasPrev() {
		nav = append(nav, Button{Label: "« Prev", Data: token(tokenTrades, "prev")})
	}
	if p.HasNext() {
		nav = append(nav, Button{Label: "Next »", Data: token(tokenTrades, "next")})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return rows
}

func (e *Engine) askTradeID(t *turn, action string) ([]Response, error) {
	step, prompt := conversation.StepTradeViewID, msgAskViewID
	switch action {
	case tradeActionEdit:
		step, prompt = conversation.StepTradeEditID, msgAskEditID
	case tradeActionDelete:
		step, prompt = conversation.StepTradeDeleteID, msgAskDeleteID
	}
	if err := e.set(t, step, &conversation.Payload{Manage: &conversation.ManageDraft{}}); err != nil {
		return nil, err
	}
	return text(prompt), nil
}

func (e *Engine) tradeAction(t *turn, action string, id int64) ([]Response, error) {
	switch action {
	case tradeActionEdit:
		return e.beginEdit(t, id)
	case tradeActionDelete:
		return e.beginDelete(t, id)
	default:
		return e.viewTrade(t, id)
	}
}

// loadTrade fetches an owned trade. A missing or foreign trade clears the
// state and yields the not-found reply.
func (e *Engine) loadTrade(t *turn, id int64) (*trade.Trade, []Response, error) {
	tr, err := e.trades.Get(t.ctx, t.user.ID, id)
	if err == nil {
		return tr, nil, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, nil, err
	}
	if err := e.clear(t); err != nil {
		return nil, nil, err
	}
	t.status = "invalid"
	return nil, tradeNotFound(id), nil
}

func (e *Engine) viewTrade(t *turn, id int64) ([]Response, error) {
	tr, out, err := e.loadTrade(t, id)
	if tr == nil {
		return out, err
	}
	if err := e.clear(t); err != nil {
		return nil, err
	}

	resp, err := e.render("trade_detail", tr)
	if err != nil {
		return nil, err
	}
	resp.Buttons = [][]Button{{
		{Label: "Edit", Data: tradeAction(tradeActionEdit, tr.ID)},
		{Label: "Delete", Data: tradeAction(tradeActionDelete, tr.ID)},
	}}

	responses := []Response{resp}
	if tr.HasScreenshot() {
		responses = append(responses, Response{
			PhotoFileID: *tr.ScreenshotID,
			Text:        fmt.Sprintf("Screenshot for trade #%d", tr.ID),
		})
	}
	return responses, nil
}

func (e *Engine) beginEdit(t *turn, id int64) ([]Response, error) {
	tr, out, err := e.loadTrade(t, id)
	if tr == nil {
		return out, err
	}
	payload := &conversation.Payload{Manage: &conversation.ManageDraft{TradeID: tr.ID}}
	if err := e.set(t, conversation.StepTradeEditField, payload); err != nil {
		return nil, err
	}
	return withButtons(
		fmt.Sprintf("Editing trade #%d (%s, %s). %s", tr.ID, tr.PairTraded, tr.DateString(), msgAskEditField),
		editFieldButtons(),
	), nil
}

func (e *Engine) beginDelete(t *turn, id int64) ([]Response, error) {
	tr, out, err := e.loadTrade(t, id)
	if tr == nil {
		return out, err
	}
	payload := &conversation.Payload{Manage: &conversation.ManageDraft{TradeID: tr.ID}}
	if err := e.set(t, conversation.StepTradeDeleteConfirm, payload); err != nil {
		return nil, err
	}
	return withButtons(
		fmt.Sprintf("Delete trade #%d (%s, %s, %s, P/L %s)? This cannot be undone.",
			tr.ID, tr.PairTraded, tr.DateString(), tr.Result, templates.SignedMoney(tr.PnL())),
		confirmButtons(),
	), nil
}

func (e *Engine) tradesStep(t *turn) ([]Response, error) {
	step := t.state.Step
	draft := t.payload().Manage
	if draft == nil {
		return nil, errors.Wrapf(errors.ErrMalformedState, "trade step %s without draft", step)
	}

	switch step {
	case conversation.StepTradeViewID, conversation.StepTradeEditID, conversation.StepTradeDeleteID:
		if t.in.callback {
			return t.invalid(text(msgExpiredButton)), nil
		}
		id, ok := parseTradeID(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidTradeID)), nil
		}
		switch step {
		case conversation.StepTradeEditID:
			return e.beginEdit(t, id)
		case conversation.StepTradeDeleteID:
			return e.beginDelete(t, id)
		default:
			return e.viewTrade(t, id)
		}

	case conversation.StepTradeEditField:
		v, out := pick(t, tokenEditField, msgAskEditField, editFieldButtons())
		if out != nil {
			return out, nil
		}
		field, ok := conversation.ParseEditField(v)
		if !ok {
			return t.invalid(text(msgExpiredButton)), nil
		}
		payload := &conversation.Payload{Manage: &conversation.ManageDraft{TradeID: draft.TradeID, Field: field}}
		if err := e.set(t, conversation.StepTradeEditValue, payload); err != nil {
			return nil, err
		}
		if field == conversation.EditResult {
			return withButtons(editFieldPrompts[field], resultButtons()), nil
		}
		return text(editFieldPrompts[field]), nil

	case conversation.StepTradeEditValue:
		return e.editValue(t, draft)

	case conversation.StepTradeEditPnL:
		if t.in.callback {
			return t.invalid(text(msgExpiredButton)), nil
		}
		amount, ok := parseAmount(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidBreakeven)), nil
		}
		tr, out, err := e.loadTrade(t, draft.TradeID)
		if tr == nil {
			return out, err
		}
		old := tr.PnL()
		tr.Result = trade.ResultBreakeven
		tr.ProfitLoss = decimal.NewNullDecimal(amount)
		return e.commitEdit(t, tr, old)

	case conversation.StepTradeDeleteConfirm:
		return e.confirmDelete(t, draft)
	}

	return nil, errors.Wrapf(errors.ErrMalformedState, "trade step %q", step)
}

// editValue validates the new value for the picked field and commits it
func (e *Engine) editValue(t *turn, draft *conversation.ManageDraft) ([]Response, error) {
	field := draft.Field
	if field != conversation.EditResult && t.in.callback {
		return t.invalid(text(msgExpiredButton)), nil
	}

	tr, out, err := e.loadTrade(t, draft.TradeID)
	if tr == nil {
		return out, err
	}
	old := tr.PnL()

	switch field {
	case conversation.EditDate:
		date, err := parseDate(t.in.text, e.today())
		switch {
		case errors.Is(err, errFutureDate):
			return t.invalid(text(msgFutureDate)), nil
		case err != nil:
			return t.invalid(text(msgInvalidDate)), nil
		}
		tr.Date = date

	case conversation.EditPair:
		if t.in.text == "" {
			return t.invalid(text(msgInvalidPair)), nil
		}
		tr.PairTraded = normalisePair(t.in.text)

	case conversation.EditStopLoss:
		sl, ok := parsePositive(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidStopLoss)), nil
		}
		tr.StopLoss = sl
		tr.Rederive()

	case conversation.EditTakeProfit:
		tp, ok := parsePositive(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidTakeProf)), nil
		}
		tr.TakeProfit = tp
		tr.Rederive()

	case conversation.EditResult:
		v, out := pick(t, tokenResult, msgAskResult, resultButtons())
		if out != nil {
			return out, nil
		}
		result, ok := trade.ParseResult(v)
		if !ok {
			return t.invalid(text(msgExpiredButton)), nil
		}
		if result == trade.ResultBreakeven {
			payload := &conversation.Payload{Manage: &conversation.ManageDraft{
				TradeID: draft.TradeID,
				Field:   field,
				Result:  result,
			}}
			if err := e.set(t, conversation.StepTradeEditPnL, payload); err != nil {
				return nil, err
			}
			return text(msgAskBreakevenPnL), nil
		}
		tr.Result = result
		tr.Rederive()

	case conversation.EditNotes:
		if t.in.text == "" {
			return t.invalid(text(msgNotesRequired)), nil
		}
		tr.Notes = t.in.text

	default:
		return nil, errors.Wrapf(errors.ErrMalformedState, "edit field %q", field)
	}

	return e.commitEdit(t, tr, old)
}

// commitEdit stores the trade and shifts the balance by the P/L difference
// in one unit
func (e *Engine) commitEdit(t *turn, tr *trade.Trade, old decimal.Decimal) ([]Response, error) {
	if err := e.ledger.Update(t.ctx, t.user, tr, old); err != nil {
		return nil, err
	}
	metrics.TradesLogged.WithLabelValues("edited").Inc()

	if err := e.clear(t); err != nil {
		return nil, err
	}
	resp, err := e.render("trade_updated", tradeSummary{Trade: tr, Balance: t.user.Balance()})
	if err != nil {
		return nil, err
	}
	return []Response{resp}, nil
}

func (e *Engine) confirmDelete(t *turn, draft *conversation.ManageDraft) ([]Response, error) {
	answer, ok := t.in.choice(tokenConfirm)
	if !ok {
		if t.in.callback {
			return t.invalid(text(msgExpiredButton)), nil
		}
		answer = t.in.text
	}

	switch {
	case isWord(answer, "yes", "y"):
	case isWord(answer, "no", "n", "cancel"):
		if err := e.clear(t); err != nil {
			return nil, err
		}
		return text(msgDeletionCanceled), nil
	default:
		return t.invalid(withButtons(msgChooseOption, confirmButtons())), nil
	}

	tr, out, err := e.loadTrade(t, draft.TradeID)
	if tr == nil {
		return out, err
	}
	if err := e.ledger.Delete(t.ctx, t.user, tr); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			if err := e.clear(t); err != nil {
				return nil, err
			}
			return tradeNotFound(tr.ID), nil
		}
		return nil, err
	}
	metrics.TradesLogged.WithLabelValues("deleted").Inc()

	if err := e.clear(t); err != nil {
		return nil, err
	}
	return textf("Trade #%d deleted. Current balance: %s", tr.ID, templates.Money(t.user.Balance())), nil
}
