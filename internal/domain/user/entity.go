package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExperienceLevel is the self-declared trading experience tier
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "Beginner"
	ExperienceIntermediate ExperienceLevel = "Intermediate"
	ExperienceAdvanced     ExperienceLevel = "Advanced"
)

// ExperienceLevels lists the accepted choices in display order
var ExperienceLevels = []ExperienceLevel{ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced}

// AccountType distinguishes personal capital from prop-firm funded accounts
type AccountType string

const (
	AccountPersonal AccountType = "Personal"
	AccountFunded   AccountType = "Funded"
)

var AccountTypes = []AccountType{AccountPersonal, AccountFunded}

// Phase is the funded-account evaluation phase
type Phase string

const (
	Phase1 Phase = "Phase 1"
	Phase2 Phase = "Phase 2"
)

var Phases = []Phase{Phase1, Phase2}

// ParseExperienceLevel matches a choice value case-insensitively
func ParseExperienceLevel(s string) (ExperienceLevel, bool) {
	for _, v := range ExperienceLevels {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

// ParseAccountType matches a choice value case-insensitively
func ParseAccountType(s string) (AccountType, bool) {
	for _, v := range AccountTypes {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

// ParsePhase matches a choice value case-insensitively
func ParsePhase(s string) (Phase, bool) {
	for _, v := range Phases {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, true
		}
	}
	return "", false
}

// User is one chat identity with its trading profile
type User struct {
	ID                   uuid.UUID           `db:"id"`
	TelegramID           int64               `db:"telegram_id"`
	FullName             string              `db:"full_name"`
	Age                  int                 `db:"age"`
	TradingYears         float64             `db:"trading_years"`
	ExperienceLevel      ExperienceLevel     `db:"experience_level"`
	AccountType          AccountType         `db:"account_type"`
	Phase                *Phase              `db:"phase"` // set only for funded accounts
	ProfitTarget         decimal.Decimal     `db:"profit_target"`
	InitialBalance       decimal.Decimal     `db:"initial_balance"`
	CurrentBalance       decimal.NullDecimal `db:"current_balance"`
	RegistrationComplete bool                `db:"registration_complete"`
	CreatedAt            time.Time           `db:"created_at"`
	UpdatedAt            time.Time           `db:"updated_at"`
}

// Balance returns the current balance, falling back to the initial balance
// and then to zero when neither is known.
func (u *User) Balance() decimal.Decimal {
	if u.CurrentBalance.Valid {
		return u.CurrentBalance.Decimal
	}
	return u.InitialBalance
}

// ApplyDelta adds a signed profit/loss delta to the current balance
func (u *User) ApplyDelta(delta decimal.Decimal) {
	u.CurrentBalance = decimal.NewNullDecimal(u.Balance().Add(delta))
}

// SetAccountType records the account tier and drops the phase for personal accounts
func (u *User) SetAccountType(t AccountType) {
	u.AccountType = t
	if t != AccountFunded {
		u.Phase = nil
	}
}

// AccountLabel renders "Funded - Phase 1" style labels
func (u *User) AccountLabel() string {
	if u.Phase != nil && *u.Phase != "" {
		return string(u.AccountType) + " - " + string(*u.Phase)
	}
	return string(u.AccountType)
}
