package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"tradejournal/internal/domain/report"
	"tradejournal/internal/domain/user"
	"tradejournal/internal/workers"
	"tradejournal/pkg/errors"
)

// Recipients lists users who finished registration
type Recipients interface {
	ListRegistered(ctx context.Context) ([]*user.User, error)
}

// ReportBuilder returns the cached or freshly built report for the week of now
type ReportBuilder interface {
	WeeklyReport(ctx context.Context, userID uuid.UUID, now time.Time) (*report.WeeklyReport, error)
}

// Notifier pushes a report to a chat
type Notifier interface {
	NotifyWeeklyReport(ctx context.Context, chatID int64, rep *report.WeeklyReport) error
}

// WeeklyReport pushes the current week's report to every registered user
// who traded that week
type WeeklyReport struct {
	*workers.BaseWorker
	users    Recipients
	reports  ReportBuilder
	notifier Notifier
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewWeeklyReport creates the worker. A nil limiter sends unpaced.
func NewWeeklyReport(
	users Recipients,
	reports ReportBuilder,
	notifier Notifier,
	limiter *rate.Limiter,
	schedule string,
	enabled bool,
) *WeeklyReport {
	return &WeeklyReport{
		BaseWorker: workers.NewBaseWorker("weekly_report", schedule, enabled),
		users:      users,
		reports:    reports,
		notifier:   notifier,
		limiter:    limiter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source
func (w *WeeklyReport) WithClock(now func() time.Time) *WeeklyReport {
	w.now = now
	return w
}

// Run sends one round of reports. One user's failure does not stop the rest;
// all failures come back together.
func (w *WeeklyReport) Run(ctx context.Context) error {
	users, err := w.users.ListRegistered(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list registered users")
	}
	if len(users) == 0 {
		w.Log().Debug("No registered users for weekly report")
		return nil
	}

	now := w.now()
	var failures errors.MultiError
	sent, skipped := 0, 0

	for _, usr := range users {
		if err := ctx.Err(); err != nil {
			failures.Add(err)
			break
		}

		rep, err := w.reports.WeeklyReport(ctx, usr.ID, now)
		if errors.Is(err, errors.ErrNotFound) {
			skipped++
			continue
		}
		if err != nil {
			failures.Add(errors.Wrapf(err, "build report for user %s", usr.ID))
			continue
		}

		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				failures.Add(err)
				break
			}
		}

		if err := w.notifier.NotifyWeeklyReport(ctx, usr.TelegramID, rep); err != nil {
			w.Log().Warnw("Failed to push weekly report", "telegram_id", usr.TelegramID, "error", err)
			failures.Add(err)
			continue
		}
		sent++
	}

	w.Log().Infow("Weekly reports pushed",
		"users", len(users),
		"sent", sent,
		"skipped", skipped,
		"failed", len(failures.Errors),
	)

	return failures.ToError()
}

var _ workers.Worker = (*WeeklyReport)(nil)
