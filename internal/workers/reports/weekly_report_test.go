package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain/report"
	"tradejournal/internal/domain/user"
	"tradejournal/pkg/errors"
)

type stubRecipients struct {
	users []*user.User
	err   error
}

func (s stubRecipients) ListRegistered(context.Context) ([]*user.User, error) {
	return s.users, s.err
}

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) WeeklyReport(ctx context.Context, userID uuid.UUID, now time.Time) (*report.WeeklyReport, error) {
	args := m.Called(ctx, userID, now)
	rep, _ := args.Get(0).(*report.WeeklyReport)
	return rep, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyWeeklyReport(ctx context.Context, chatID int64, rep *report.WeeklyReport) error {
	return m.Called(ctx, chatID, rep).Error(0)
}

var sunday = time.Date(2025, 5, 4, 18, 0, 0, 0, time.UTC)

func newUser(telegramID int64) *user.User {
	return &user.User{ID: uuid.New(), TelegramID: telegramID, RegistrationComplete: true}
}

func TestWeeklyReport_Run(t *testing.T) {
	active, idle, broken := newUser(1), newUser(2), newUser(3)
	rep := &report.WeeklyReport{UserID: active.ID, TotalTrades: 3}

	builder := &mockBuilder{}
	builder.On("WeeklyReport", mock.Anything, active.ID, sunday).Return(rep, nil)
	builder.On("WeeklyReport", mock.Anything, idle.ID, sunday).
		Return(nil, errors.Wrap(errors.ErrNotFound, "no trades"))
	builder.On("WeeklyReport", mock.Anything, broken.ID, sunday).Return(nil, errors.New("db down"))

	notifier := &mockNotifier{}
	notifier.On("NotifyWeeklyReport", mock.Anything, int64(1), rep).Return(nil).Once()

	w := NewWeeklyReport(
		stubRecipients{users: []*user.User{active, idle, broken}},
		builder, notifier, nil, "0 0 18 * * SUN", true,
	).WithClock(func() time.Time { return sunday })

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")

	builder.AssertExpectations(t)
	notifier.AssertExpectations(t)
	notifier.AssertNotCalled(t, "NotifyWeeklyReport", mock.Anything, int64(2), mock.Anything)
}

func TestWeeklyReport_DeliveryFailureDoesNotStopRound(t *testing.T) {
	first, second := newUser(1), newUser(2)

	builder := &mockBuilder{}
	builder.On("WeeklyReport", mock.Anything, mock.Anything, sunday).Return(&report.WeeklyReport{TotalTrades: 1}, nil)

	notifier := &mockNotifier{}
	notifier.On("NotifyWeeklyReport", mock.Anything, int64(1), mock.Anything).Return(errors.New("blocked"))
	notifier.On("NotifyWeeklyReport", mock.Anything, int64(2), mock.Anything).Return(nil)

	w := NewWeeklyReport(stubRecipients{users: []*user.User{first, second}}, builder, notifier, nil, "@weekly", true).
		WithClock(func() time.Time { return sunday })

	err := w.Run(context.Background())
	require.Error(t, err)
	notifier.AssertExpectations(t)
}

func TestWeeklyReport_NoUsers(t *testing.T) {
	w := NewWeeklyReport(stubRecipients{}, &mockBuilder{}, &mockNotifier{}, nil, "@weekly", true)
	assert.NoError(t, w.Run(context.Background()))

	w = NewWeeklyReport(stubRecipients{err: errors.New("offline")}, &mockBuilder{}, &mockNotifier{}, nil, "@weekly", true)
	assert.Error(t, w.Run(context.Background()))
}

func TestWeeklyReport_Metadata(t *testing.T) {
	w := NewWeeklyReport(stubRecipients{}, &mockBuilder{}, &mockNotifier{}, nil, "0 0 18 * * SUN", false)
	assert.Equal(t, "weekly_report", w.Name())
	assert.Equal(t, "0 0 18 * * SUN", w.Schedule())
	assert.False(t, w.Enabled())
}
