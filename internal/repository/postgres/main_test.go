package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain/user"
	"tradejournal/internal/testsupport"
)

// newTestDB opens a rolled-back transaction with the schema applied, or skips
func newTestDB(t *testing.T) *testsupport.PostgresTestHelper {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	return testsupport.NewTestPostgres(t)
}

// seedUser inserts a registered user so foreign keys resolve
func seedUser(t *testing.T, db DBTX) *user.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &user.User{
		ID:                   uuid.New(),
		TelegramID:           testsupport.UniqueTelegramID(),
		FullName:             "Test Trader",
		Age:                  30,
		TradingYears:         2.5,
		ExperienceLevel:      user.ExperienceIntermediate,
		AccountType:          user.AccountPersonal,
		ProfitTarget:         decimal.NewFromInt(500),
		InitialBalance:       decimal.NewFromInt(1000),
		CurrentBalance:       decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		RegistrationComplete: true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}
