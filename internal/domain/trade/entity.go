package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Result is the nominal outcome recorded by the trader
type Result string

const (
	ResultWin       Result = "Win"
	ResultLoss      Result = "Loss"
	ResultBreakeven Result = "Breakeven"
)

// Results lists the accepted choices in display order
var Results = []Result{ResultWin, ResultLoss, ResultBreakeven}

// ParseResult matches a choice value case-insensitively
func ParseResult(s string) (Result, bool) {
	for _, r := range Results {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, true
		}
	}
	return "", false
}

// DateLayout is the only accepted date literal format
const DateLayout = "2006-01-02"

// Trade is one journaled trade owned by a user
type Trade struct {
	ID           int64               `db:"id"`
	UserID       uuid.UUID           `db:"user_id"`
	Date         time.Time           `db:"date"`
	PairTraded   string              `db:"pair_traded"`
	StopLoss     decimal.Decimal     `db:"stop_loss"`   // positive USD magnitude
	TakeProfit   decimal.Decimal     `db:"take_profit"` // positive USD magnitude
	Result       Result              `db:"result"`
	ProfitLoss   decimal.NullDecimal `db:"profit_loss"`
	ScreenshotID *string             `db:"screenshot_id"`
	Notes        string              `db:"notes"`
	CreatedAt    time.Time           `db:"created_at"`
}

// DeriveProfitLoss returns the signed P/L for a result:
// +takeProfit for a win, -stopLoss for a loss, breakevenAmount otherwise.
func DeriveProfitLoss(result Result, stopLoss, takeProfit, breakevenAmount decimal.Decimal) decimal.Decimal {
	switch result {
	case ResultWin:
		return takeProfit.Abs()
	case ResultLoss:
		return stopLoss.Abs().Neg()
	default:
		return breakevenAmount
	}
}

// PnL returns the signed profit/loss, treating NULL as zero
func (t *Trade) PnL() decimal.Decimal {
	if t.ProfitLoss.Valid {
		return t.ProfitLoss.Decimal
	}
	return decimal.Zero
}

// HasPnL reports whether a profit/loss value is recorded
func (t *Trade) HasPnL() bool {
	return t.ProfitLoss.Valid
}

// Rederive recomputes P/L after a result or stop/target change.
// Breakeven trades keep their entered amount.
func (t *Trade) Rederive() {
	if t.Result == ResultBreakeven {
		return
	}
	t.ProfitLoss = decimal.NewNullDecimal(DeriveProfitLoss(t.Result, t.StopLoss, t.TakeProfit, decimal.Zero))
}

// HasScreenshot reports whether an attachment was stored
func (t *Trade) HasScreenshot() bool {
	return t.ScreenshotID != nil && *t.ScreenshotID != ""
}

// DateString renders the trade date as YYYY-MM-DD
func (t *Trade) DateString() string {
	return t.Date.Format(DateLayout)
}

// Page is one slice of a user's trade list
type Page struct {
	Trades     []Trade
	Page       int // 1-based
	TotalPages int
	Total      int
}

func (p Page) HasNext() bool { return p.Page < p.TotalPages }
func (p Page) HasPrev() bool { return p.Page > 1 }
