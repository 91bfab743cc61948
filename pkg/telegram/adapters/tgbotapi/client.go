package tgbotapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
	"tradejournal/pkg/telegram"
)

// Bot represents a Telegram bot that implements telegram.Bot interface
type Bot struct {
	api         *tgbotapi.BotAPI
	log         *logger.Logger
	mu          sync.RWMutex
	running     bool
	webhookMode bool
	timeout     int
	msgHandler  func(telegram.Update) // Handler works with abstracted Update
	rateLimiter *rate.Limiter
	handlers    sync.WaitGroup
}

// Config contains Telegram bot configuration
type Config struct {
	Token          string
	Debug          bool
	Timeout        int  // Update timeout in seconds
	WebhookMode    bool // If true, don't start polling (use webhook instead)
	HTTPTimeout    time.Duration
	RateLimitBurst int // Rate limiter burst (default: 30)
	RateLimitRate  int // Rate limiter per second (default: 20)
}

// NewBot creates a new Telegram bot instance that implements telegram.Bot interface
func NewBot(cfg Config, log *logger.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 60
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 20
	}

	// long polling holds the request open for Timeout seconds
	httpTimeout := cfg.HTTPTimeout
	if poll := time.Duration(cfg.Timeout+10) * time.Second; httpTimeout < poll {
		httpTimeout = poll
	}
	httpClient := &http.Client{
		Timeout: httpTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	api.Debug = cfg.Debug

	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		webhookMode: cfg.WebhookMode,
		timeout:     cfg.Timeout,
		log:         log.With("component", "telegram_bot"),
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
	}, nil
}

// Start begins polling for updates (or just blocks if webhook mode)
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.mu.Unlock()

	if b.webhookMode {
		b.log.Infow("Bot running in webhook mode, not starting polling")
		<-ctx.Done()
		b.stop()
		return nil
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	b.log.Infow("Starting to poll for updates")

	for {
		select {
		case <-ctx.Done():
			b.log.Infow("Stopping bot due to context cancellation")
			b.api.StopReceivingUpdates()
			b.stop()
			return nil

		case tgUpdate, ok := <-updates:
			if !ok {
				b.stop()
				return nil
			}
			b.dispatch(convertUpdate(tgUpdate))
		}
	}
}

// dispatch runs the handler off the polling loop so one slow turn does not
// hold up other chats
func (b *Bot) dispatch(update telegram.Update) {
	b.mu.RLock()
	handler := b.msgHandler
	b.mu.RUnlock()
	if handler == nil {
		return
	}

	b.handlers.Add(1)
	go func() {
		defer b.handlers.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Errorw("Panic in update handler", "panic", r, "update_id", update.UpdateID)
			}
		}()
		handler(update)
	}()
}

// stop waits for in-flight handlers
func (b *Bot) stop() {
	b.handlers.Wait()

	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
	b.log.Infow("Bot stopped")
}

// SetHandler sets the message handler (uses abstracted Update type)
func (b *Bot) SetHandler(handler func(telegram.Update)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgHandler = handler
}

// SendMessage sends a text message
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, opts telegram.MessageOptions) (int, error) {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return 0, errors.Wrap(err, "rate limiter error")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = opts.ParseMode
	msg.DisableWebPagePreview = opts.DisableWebPagePreview
	if opts.Keyboard != nil {
		msg.ReplyMarkup = convertKeyboardToTgbotapi(*opts.Keyboard)
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Errorw("Failed to send message", "chat_id", chatID, "error", err)
		return 0, wrapAPIError(err, "failed to send telegram message")
	}

	return sent.MessageID, nil
}

// SendPhoto re-sends a photo that Telegram already stores
func (b *Bot) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, opts telegram.MessageOptions) (int, error) {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return 0, errors.Wrap(err, "rate limiter error")
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	photo.ParseMode = opts.ParseMode
	if opts.Keyboard != nil {
		photo.ReplyMarkup = convertKeyboardToTgbotapi(*opts.Keyboard)
	}

	sent, err := b.api.Send(photo)
	if err != nil {
		b.log.Errorw("Failed to send photo", "chat_id", chatID, "error", err)
		return 0, wrapAPIError(err, "failed to send telegram photo")
	}

	return sent.MessageID, nil
}

// SendChatAction shows a transient status such as "typing"
func (b *Bot) SendChatAction(ctx context.Context, chatID int64, action string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		return wrapAPIError(err, "failed to send chat action")
	}
	return nil
}

// AnswerCallback answers callback query
func (b *Bot) AnswerCallback(ctx context.Context, callbackQueryID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.api.Request(tgbotapi.NewCallback(callbackQueryID, text))
	if err != nil {
		b.log.Errorw("Failed to answer callback", "callback_id", callbackQueryID, "error", err)
		return wrapAPIError(err, "failed to answer callback query")
	}

	return nil
}

// IsRunning checks if bot is currently running
func (b *Bot) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// SetWebhook configures the bot to use webhook mode
func (b *Bot) SetWebhook(webhookURL, secretToken string) error {
	webhookConfig, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return errors.Wrap(err, "failed to create webhook config")
	}

	webhookConfig.MaxConnections = 40
	webhookConfig.AllowedUpdates = []string{"message", "callback_query"}

	params, err := webhookConfig.Params()
	if err != nil {
		return errors.Wrap(err, "failed to build webhook params")
	}
	if secretToken != "" {
		params["secret_token"] = secretToken
	}

	if _, err := b.api.MakeRequest(webhookConfig.Method(), params); err != nil {
		return wrapAPIError(err, "failed to set webhook")
	}

	b.log.Infow("Webhook configured successfully", "url", webhookURL)
	return nil
}

// DeleteWebhook removes webhook and returns to polling mode
func (b *Bot) DeleteWebhook(dropPendingUpdates bool) error {
	deleteConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: dropPendingUpdates,
	}

	if _, err := b.api.Request(deleteConfig); err != nil {
		return wrapAPIError(err, "failed to delete webhook")
	}

	b.log.Infow("Webhook deleted successfully")
	return nil
}

// GetWebhookInfo returns current webhook information
func (b *Bot) GetWebhookInfo() (telegram.WebhookInfo, error) {
	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return telegram.WebhookInfo{}, wrapAPIError(err, "failed to get webhook info")
	}

	return telegram.WebhookInfo{
		URL:                  info.URL,
		HasCustomCertificate: info.HasCustomCertificate,
		PendingUpdateCount:   info.PendingUpdateCount,
		LastErrorDate:        info.LastErrorDate,
		LastErrorMessage:     info.LastErrorMessage,
		MaxConnections:       info.MaxConnections,
	}, nil
}

// Verify Bot implements telegram.Bot interface at compile time
var _ telegram.Bot = (*Bot)(nil)

// wrapAPIError maps Bot API failures onto domain sentinels
func wrapAPIError(err error, msg string) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.RetryAfter > 0:
			return errors.Wrapf(errors.ErrRateLimitExceeded, "%s: %s", msg, apiErr.Message)
		case apiErr.Code == http.StatusForbidden:
			return errors.Wrapf(errors.ErrForbidden, "%s: %s", msg, apiErr.Message)
		}
	}
	return errors.Wrap(err, msg)
}

// convertUpdate converts tgbotapi.Update to telegram.Update (abstraction layer)
func convertUpdate(tgUpdate tgbotapi.Update) telegram.Update {
	update := telegram.Update{
		UpdateID: tgUpdate.UpdateID,
	}

	if tgUpdate.Message != nil {
		update.Message = convertMessage(tgUpdate.Message)
	}

	if tgUpdate.CallbackQuery != nil {
		update.CallbackQuery = convertCallbackQuery(tgUpdate.CallbackQuery)
	}

	return update
}

// convertMessage converts tgbotapi.Message to telegram.Message
func convertMessage(tgMsg *tgbotapi.Message) *telegram.Message {
	msg := &telegram.Message{
		MessageID: tgMsg.MessageID,
		Text:      tgMsg.Text,
		Caption:   tgMsg.Caption,
		IsCommand: tgMsg.IsCommand(),
	}

	if tgMsg.From != nil {
		msg.From = convertUser(tgMsg.From)
	}

	if tgMsg.Chat != nil {
		msg.Chat = convertChat(tgMsg.Chat)
	}

	if msg.IsCommand {
		msg.Command = tgMsg.Command()
		msg.Arguments = tgMsg.CommandArguments()
	}

	for _, p := range tgMsg.Photo {
		msg.Photo = append(msg.Photo, telegram.PhotoSize{
			FileID:   p.FileID,
			Width:    p.Width,
			Height:   p.Height,
			FileSize: p.FileSize,
		})
	}

	return msg
}

// convertCallbackQuery converts tgbotapi.CallbackQuery to telegram.CallbackQuery
func convertCallbackQuery(tgCallback *tgbotapi.CallbackQuery) *telegram.CallbackQuery {
	callback := &telegram.CallbackQuery{
		ID:   tgCallback.ID,
		Data: tgCallback.Data,
	}

	if tgCallback.From != nil {
		callback.From = convertUser(tgCallback.From)
	}

	if tgCallback.Message != nil {
		callback.Message = convertMessage(tgCallback.Message)
	}

	return callback
}

// convertUser converts tgbotapi.User to telegram.User
func convertUser(tgUser *tgbotapi.User) *telegram.User {
	return &telegram.User{
		ID:        tgUser.ID,
		FirstName: tgUser.FirstName,
		LastName:  tgUser.LastName,
		Username:  tgUser.UserName,
		IsBot:     tgUser.IsBot,
	}
}

// convertChat converts tgbotapi.Chat to telegram.Chat
func convertChat(tgChat *tgbotapi.Chat) *telegram.Chat {
	return &telegram.Chat{
		ID:       tgChat.ID,
		Type:     tgChat.Type,
		Title:    tgChat.Title,
		Username: tgChat.UserName,
	}
}

// convertKeyboardToTgbotapi converts telegram.InlineKeyboardMarkup to tgbotapi.InlineKeyboardMarkup
func convertKeyboardToTgbotapi(keyboard telegram.InlineKeyboardMarkup) tgbotapi.InlineKeyboardMarkup {
	tgRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard.InlineKeyboard))

	for _, row := range keyboard.InlineKeyboard {
		tgRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			tgButton := tgbotapi.InlineKeyboardButton{
				Text: button.Text,
			}

			if button.CallbackData != "" {
				data := button.CallbackData
				tgButton.CallbackData = &data
			}

			if button.URL != "" {
				url := button.URL
				tgButton.URL = &url
			}

			tgRow = append(tgRow, tgButton)
		}
		tgRows = append(tgRows, tgRow)
	}

	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: tgRows,
	}
}
