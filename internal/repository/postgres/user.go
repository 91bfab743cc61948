package postgres

import (
	"context"

	"github.com/google/uuid"

	"tradejournal/internal/domain/user"
)

// Compile-time check that we implement the interface
var _ user.Repository = (*UserRepository)(nil)

const userColumns = `
	id, telegram_id, full_name, age, trading_years, experience_level, account_type, phase,
	profit_target, initial_balance, current_balance, registration_complete, created_at, updated_at`

// UserRepository implements user.Repository using sqlx
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (
			:id, :telegram_id, :full_name, :age, :trading_years, :experience_level, :account_type, :phase,
			:profit_target, :initial_balance, :current_balance, :registration_complete, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, u)
	return mapError(err, "user")
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var u user.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, mapError(err, "user")
	}
	return &u, nil
}

// GetByTelegramID retrieves a user by Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	var u user.User
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	if err := r.db.GetContext(ctx, &u, query, telegramID); err != nil {
		return nil, mapError(err, "user")
	}
	return &u, nil
}

// Update overwrites the profile columns
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			full_name = :full_name,
			age = :age,
			trading_years = :trading_years,
			experience_level = :experience_level,
			account_type = :account_type,
			phase = :phase,
			profit_target = :profit_target,
			initial_balance = :initial_balance,
			current_balance = :current_balance,
			registration_complete = :registration_complete,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		return mapError(err, "user")
	}
	return expectRow(res, "user")
}

// ListRegistered returns users with a completed profile, oldest first
func (r *UserRepository) ListRegistered(ctx context.Context) ([]*user.User, error) {
	var users []*user.User
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE registration_complete = TRUE
		ORDER BY created_at, telegram_id`

	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, mapError(err, "registered users")
	}
	return users, nil
}
