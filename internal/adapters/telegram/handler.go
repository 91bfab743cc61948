package telegram

import (
	"context"
	"strings"
	"time"

	"tradejournal/internal/metrics"
	"tradejournal/internal/services/dialogue"
	"tradejournal/pkg/logger"
	"tradejournal/pkg/telegram"
)

// Engine is the conversation engine the handler feeds
type Engine interface {
	Handle(ctx context.Context, ev dialogue.Event) []dialogue.Response
}

// Handler converts Telegram updates into dialogue events and sends the
// engine's replies back through the bot
type Handler struct {
	bot     telegram.Bot
	engine  Engine
	timeout time.Duration
	log     *logger.Logger
}

// NewHandler creates a new telegram handler
func NewHandler(bot telegram.Bot, engine Engine, timeout time.Duration, log *logger.Logger) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Handler{
		bot:     bot,
		engine:  engine,
		timeout: timeout,
		log:     log.With("component", "telegram_handler"),
	}
}

// HandleUpdate processes incoming Telegram update
// This is the main entry point for all updates
func (h *Handler) HandleUpdate(update telegram.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	ev, ok := toEvent(update)
	if !ok {
		h.log.Debugw("Ignoring update", "update_id", update.UpdateID)
		return
	}

	chatID := update.ChatID()
	if chatID == 0 {
		chatID = ev.TelegramID
	}

	if update.HasCallback() {
		// stop the button spinner before the turn runs
		err := h.bot.AnswerCallback(ctx, update.CallbackQuery.ID, "")
		metrics.RecordTelegramMessage("callback_answer", err)
		if err != nil {
			h.log.Warnw("Failed to answer callback", "callback_id", update.CallbackQuery.ID, "error", err)
		}
	}

	if ev.Kind == dialogue.EventText {
		err := h.bot.SendChatAction(ctx, chatID, telegram.ActionTyping)
		metrics.RecordTelegramMessage("chat_action", err)
	}

	h.log.Debugw("Processing update",
		"telegram_id", ev.TelegramID,
		"event", ev.Kind.String(),
	)

	for _, resp := range h.engine.Handle(ctx, ev) {
		if err := h.send(ctx, chatID, resp); err != nil {
			h.log.Errorw("Failed to send reply",
				"chat_id", chatID,
				"telegram_id", ev.TelegramID,
				"error", err,
			)
		}
	}
}

// send delivers one engine response. ChatID 0 means the sender's chat.
func (h *Handler) send(ctx context.Context, chatID int64, resp dialogue.Response) error {
	if resp.ChatID != 0 {
		chatID = resp.ChatID
	}

	opts := telegram.MessageOptions{
		Keyboard:              keyboardOf(resp.Buttons),
		DisableWebPagePreview: true,
	}
	if resp.Markdown {
		opts.ParseMode = telegram.ParseModeMarkdown
	}

	if resp.PhotoFileID != "" {
		_, err := h.bot.SendPhoto(ctx, chatID, resp.PhotoFileID, resp.Text, opts)
		metrics.RecordTelegramMessage("photo", err)
		return err
	}

	_, err := h.bot.SendMessage(ctx, chatID, resp.Text, opts)
	metrics.RecordTelegramMessage("message", err)
	return err
}

// toEvent normalises an update; false when nothing in it concerns the engine
func toEvent(update telegram.Update) (dialogue.Event, bool) {
	sender := update.Sender()
	if sender == nil || sender.IsBot {
		return dialogue.Event{}, false
	}

	ev := dialogue.Event{
		TelegramID:  sender.ID,
		DisplayName: sender.DisplayName(),
	}

	if cb := update.CallbackQuery; cb != nil {
		ev.Kind = dialogue.EventCallback
		ev.Data = cb.Data
		return ev, true
	}

	msg := update.Message
	if msg == nil {
		return dialogue.Event{}, false
	}

	switch {
	case msg.IsCommand && msg.Command != "":
		ev.Kind = dialogue.EventCommand
		ev.Command = strings.ToLower(msg.Command)
		ev.Args = strings.TrimSpace(msg.Arguments)
	case len(msg.Photo) > 0:
		ev.Kind = dialogue.EventPhoto
		ev.FileID = msg.LargestPhoto()
		ev.Caption = msg.Caption
	default:
		// stickers, documents and the like arrive as empty text
		ev.Kind = dialogue.EventText
		ev.Text = msg.Text
	}
	return ev, true
}

// keyboardOf maps engine buttons onto an inline keyboard
func keyboardOf(rows [][]dialogue.Button) *telegram.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	kbRows := make([][]telegram.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		kbRow := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			kbRow = append(kbRow, telegram.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		kbRows = append(kbRows, telegram.NewInlineKeyboardRow(kbRow...))
	}

	kb := telegram.NewInlineKeyboardMarkup(kbRows...)
	return &kb
}
