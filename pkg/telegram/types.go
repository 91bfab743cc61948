package telegram

import (
	"context"
)

// Parse modes accepted by the Bot API
const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

// Chat actions shown while a reply is being prepared
const (
	ActionTyping      = "typing"
	ActionUploadPhoto = "upload_photo"
)

// Bot abstracts the Telegram Bot API for dependency injection
type Bot interface {
	// Start polls for updates until ctx is done. In webhook mode it only blocks.
	Start(ctx context.Context) error

	// SetHandler sets the update handler
	SetHandler(handler func(Update))

	// SendMessage sends a text message and returns its message id
	SendMessage(ctx context.Context, chatID int64, text string, opts MessageOptions) (int, error)

	// SendPhoto re-sends a stored photo by file id
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, opts MessageOptions) (int, error)

	// SendChatAction shows a transient status such as "typing"
	SendChatAction(ctx context.Context, chatID int64, action string) error

	// AnswerCallback acknowledges a button press
	AnswerCallback(ctx context.Context, callbackQueryID, text string) error
}

// MessageOptions defines options for sending messages
type MessageOptions struct {
	// Keyboard for inline buttons
	Keyboard *InlineKeyboardMarkup

	// ParseMode is Markdown, HTML or empty for plain text
	ParseMode string

	// DisableWebPagePreview disables link previews
	DisableWebPagePreview bool
}

// WebhookInfo contains information about current webhook setup
type WebhookInfo struct {
	URL                  string
	HasCustomCertificate bool
	PendingUpdateCount   int
	LastErrorDate        int
	LastErrorMessage     string
	MaxConnections       int
}
