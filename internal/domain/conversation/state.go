package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/trade"
	"tradejournal/pkg/errors"
)

// Flow identifies which multi-step dialogue a step belongs to
type Flow string

const (
	FlowRegistration Flow = "registration"
	FlowJournal      Flow = "journal"
	FlowTrades       Flow = "trades"
	FlowBroadcast    Flow = "broadcast"
	FlowTherapy      Flow = "therapy"
)

// Step is the persisted position inside a flow. The set is closed: anything
// not listed in stepFlows is rejected when read back from storage.
type Step string

const (
	StepRegFullName       Step = "registration_full_name"
	StepRegAge            Step = "registration_age"
	StepRegTradingYears   Step = "registration_trading_years"
	StepRegExperience     Step = "registration_experience"
	StepRegAccountType    Step = "registration_account_type"
	StepRegPhase          Step = "registration_phase"
	StepRegProfitTarget   Step = "registration_profit_target"
	StepRegInitialBalance Step = "registration_initial_balance"

	StepJournalDate            Step = "journal_date"
	StepJournalPair            Step = "journal_pair"
	StepJournalStopLoss        Step = "journal_sl"
	StepJournalTakeProfit      Step = "journal_tp"
	StepJournalResult          Step = "journal_result"
	StepJournalBreakevenAmount Step = "journal_breakeven_amount"
	StepJournalScreenshot      Step = "journal_screenshot"
	StepJournalNotes           Step = "journal_notes"

	StepTradeViewID        Step = "trade_view_id"
	StepTradeEditID        Step = "trade_edit_id"
	StepTradeEditField     Step = "trade_edit_field"
	StepTradeEditValue     Step = "trade_edit_value"
	StepTradeEditPnL       Step = "trade_edit_pnl"
	StepTradeDeleteID      Step = "trade_delete_id"
	StepTradeDeleteConfirm Step = "trade_delete_confirm"

	StepBroadcastCompose Step = "broadcast_compose"
	StepBroadcastConfirm Step = "broadcast_confirm"

	StepTherapyActive Step = "therapy_active"
)

var stepFlows = map[Step]Flow{
	StepRegFullName:       FlowRegistration,
	StepRegAge:            FlowRegistration,
	StepRegTradingYears:   FlowRegistration,
	StepRegExperience:     FlowRegistration,
	StepRegAccountType:    FlowRegistration,
	StepRegPhase:          FlowRegistration,
	StepRegProfitTarget:   FlowRegistration,
	StepRegInitialBalance: FlowRegistration,

	StepJournalDate:            FlowJournal,
	StepJournalPair:            FlowJournal,
	StepJournalStopLoss:        FlowJournal,
	StepJournalTakeProfit:      FlowJournal,
	StepJournalResult:          FlowJournal,
	StepJournalBreakevenAmount: FlowJournal,
	StepJournalScreenshot:      FlowJournal,
	StepJournalNotes:           FlowJournal,

	StepTradeViewID:        FlowTrades,
	StepTradeEditID:        FlowTrades,
	StepTradeEditField:     FlowTrades,
	StepTradeEditValue:     FlowTrades,
	StepTradeEditPnL:       FlowTrades,
	StepTradeDeleteID:      FlowTrades,
	StepTradeDeleteConfirm: FlowTrades,

	StepBroadcastCompose: FlowBroadcast,
	StepBroadcastConfirm: FlowBroadcast,

	StepTherapyActive: FlowTherapy,
}

// Flow returns the owning flow, or "" for an unknown step
func (s Step) Flow() Flow {
	return stepFlows[s]
}

// Valid reports whether s is a known step
func (s Step) Valid() bool {
	_, ok := stepFlows[s]
	return ok
}

// ParseStep converts a stored step name, rejecting unknown values
func ParseStep(raw string) (Step, error) {
	s := Step(raw)
	if !s.Valid() {
		return "", errors.Wrapf(errors.ErrMalformedState, "unknown step %q", raw)
	}
	return s, nil
}

// JournalDraft collects trade fields across the journaling steps
type JournalDraft struct {
	Date            string           `json:"date,omitempty"` // YYYY-MM-DD
	Pair            string           `json:"pair,omitempty"`
	StopLoss        *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit      *decimal.Decimal `json:"take_profit,omitempty"`
	Result          trade.Result     `json:"result,omitempty"`
	BreakevenAmount *decimal.Decimal `json:"breakeven_amount,omitempty"`
	ScreenshotID    string           `json:"screenshot_id,omitempty"`
}

// EditField names a trade attribute that can be edited
type EditField string

const (
	EditDate       EditField = "date"
	EditPair       EditField = "pair"
	EditStopLoss   EditField = "sl"
	EditTakeProfit EditField = "tp"
	EditResult     EditField = "result"
	EditNotes      EditField = "notes"
)

// EditFields lists the picker options in display order
var EditFields = []EditField{EditDate, EditPair, EditStopLoss, EditTakeProfit, EditResult, EditNotes}

// ParseEditField matches a picker value
func ParseEditField(s string) (EditField, bool) {
	for _, f := range EditFields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// ManageDraft carries the trade being viewed, edited or deleted
type ManageDraft struct {
	TradeID int64        `json:"trade_id,omitempty"`
	Field   EditField    `json:"field,omitempty"`
	Result  trade.Result `json:"result,omitempty"` // pending result while asking for breakeven P/L
}

// BroadcastDraft holds the composed operator message awaiting confirmation
type BroadcastDraft struct {
	Message string `json:"message"`
}

// Payload is the typed step-local data. At most one draft is set, matching
// the flow of the current step.
type Payload struct {
	Journal   *JournalDraft   `json:"journal,omitempty"`
	Manage    *ManageDraft    `json:"manage,omitempty"`
	Broadcast *BroadcastDraft `json:"broadcast,omitempty"`
}

// IsEmpty reports whether no draft is present
func (p Payload) IsEmpty() bool {
	return p.Journal == nil && p.Manage == nil && p.Broadcast == nil
}

// State is the live conversation record for one user
type State struct {
	UserID    uuid.UUID
	Step      Step
	Payload   Payload
	UpdatedAt time.Time
}

// Flow is a shorthand for State.Step.Flow
func (s *State) Flow() Flow {
	return s.Step.Flow()
}

// Store persists conversation state keyed by user.
//
// Get returns (nil, nil) when the user is idle. Set upserts the step; a nil
// payload leaves any stored payload untouched, a non-nil payload replaces it
// wholesale. Clear deletes the record.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*State, error)
	Set(ctx context.Context, userID uuid.UUID, step Step, payload *Payload) error
	Clear(ctx context.Context, userID uuid.UUID) error
}
