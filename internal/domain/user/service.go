package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

// Service provides business logic for user operations.
type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

// NewService constructs a user service instance.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		log:  logger.Get().With("service", "user"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithRepository returns a copy of the service bound to repo, such as a
// repository scoped to a transaction
func (s *Service) WithRepository(repo Repository) *Service {
	c := *s
	c.repo = repo
	return &c
}

// GetOrCreate loads the user for a chat identity, creating an unregistered
// record on first contact.
func (s *Service) GetOrCreate(ctx context.Context, telegramID int64, displayName string) (*User, error) {
	if telegramID == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram id required")
	}

	u, err := s.repo.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Wrap(err, "get user by telegram")
	}

	now := s.now()
	u = &User{
		ID:         uuid.New(),
		TelegramID: telegramID,
		FullName:   strings.TrimSpace(displayName),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, errors.ErrAlreadyExists) {
			// lost a race with a concurrent first message
			return s.repo.GetByTelegramID(ctx, telegramID)
		}
		return nil, errors.Wrap(err, "create user")
	}

	s.log.Infow("Created user", "telegram_id", telegramID, "user_id", u.ID)
	return u, nil
}

// Save persists profile changes made during registration
func (s *Service) Save(ctx context.Context, u *User) error {
	if u == nil || u.ID == uuid.Nil {
		return errors.Wrap(errors.ErrInvalidInput, "save user: id is required")
	}
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return errors.Wrap(err, "update user")
	}
	return nil
}

// CompleteRegistration marks the profile complete and seeds the current balance
func (s *Service) CompleteRegistration(ctx context.Context, u *User) error {
	if u.InitialBalance.LessThanOrEqual(decimal.Zero) {
		return errors.NewValidationError("initial_balance", "must be positive", u.InitialBalance.String())
	}
	u.RegistrationComplete = true
	u.CurrentBalance = decimal.NewNullDecimal(u.InitialBalance)
	if err := s.Save(ctx, u); err != nil {
		return errors.Wrap(err, "complete registration")
	}
	s.log.Infow("Registration complete", "telegram_id", u.TelegramID, "user_id", u.ID)
	return nil
}

// ApplyTradeDelta shifts the current balance by a trade's signed profit/loss
func (s *Service) ApplyTradeDelta(ctx context.Context, u *User, delta decimal.Decimal) error {
	if delta.IsZero() && u.CurrentBalance.Valid {
		return nil
	}
	u.ApplyDelta(delta)
	if err := s.Save(ctx, u); err != nil {
		return errors.Wrap(err, "apply trade delta")
	}
	return nil
}

// ListRegistered returns a snapshot of every registered user
func (s *Service) ListRegistered(ctx context.Context) ([]*User, error) {
	users, err := s.repo.ListRegistered(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list registered users")
	}
	return users, nil
}
