package coaching

import (
	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/user"
)

// Profile is the trader context included in every coaching prompt
type Profile struct {
	Name           string
	Age            int
	TradingYears   float64
	Experience     string
	AccountLabel   string
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
}

// ProfileFromUser snapshots the fields the coach needs
func ProfileFromUser(u *user.User) Profile {
	return Profile{
		Name:           u.FullName,
		Age:            u.Age,
		TradingYears:   u.TradingYears,
		Experience:     string(u.ExperienceLevel),
		AccountLabel:   u.AccountLabel(),
		InitialBalance: u.InitialBalance,
		CurrentBalance: u.Balance(),
	}
}
