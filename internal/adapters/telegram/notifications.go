package telegram

import (
	"context"

	"tradejournal/internal/domain/report"
	"tradejournal/internal/metrics"
	"tradejournal/internal/services/dialogue"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
	"tradejournal/pkg/telegram"
	"tradejournal/pkg/templates"
)

// NotificationService sends messages that are not replies to a turn:
// broadcast copies and scheduled weekly reports
type NotificationService struct {
	bot       telegram.Bot
	templates *templates.Registry
	log       *logger.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(bot telegram.Bot, tmpl *templates.Registry, log *logger.Logger) *NotificationService {
	if tmpl == nil {
		tmpl = templates.Get()
	}
	return &NotificationService{
		bot:       bot,
		templates: tmpl,
		log:       log.With("component", "telegram_notifications"),
	}
}

// Deliver sends text verbatim, without parse mode
func (ns *NotificationService) Deliver(ctx context.Context, chatID int64, text string) error {
	_, err := telegram.NewMessage(chatID, text).NoPreview().Send(ctx, ns.bot)
	metrics.RecordTelegramMessage("notification", err)
	if err != nil {
		return errors.Wrapf(err, "deliver to chat %d", chatID)
	}
	return nil
}

// NotifyWeeklyReport pushes a rendered weekly report
func (ns *NotificationService) NotifyWeeklyReport(ctx context.Context, chatID int64, rep *report.WeeklyReport) error {
	text, err := ns.templates.Render("telegram/weekly_report", rep)
	if err != nil {
		ns.log.Errorw("Failed to render weekly_report template", "error", err)
		return err
	}

	_, err = telegram.NewMessage(chatID, text).WithMarkdown().NoPreview().Send(ctx, ns.bot)
	metrics.RecordTelegramMessage("weekly_report", err)
	if err != nil {
		return errors.Wrapf(err, "send weekly report to chat %d", chatID)
	}
	return nil
}

var _ dialogue.Deliverer = (*NotificationService)(nil)
