package telegram

import "context"

// MessageBuilder provides fluent API for building messages
type MessageBuilder struct {
	chatID                int64
	text                  string
	parseMode             string
	keyboard              *InlineKeyboardMarkup
	disableWebPagePreview bool
}

// NewMessage creates a plain-text message builder
func NewMessage(chatID int64, text string) *MessageBuilder {
	return &MessageBuilder{
		chatID: chatID,
		text:   text,
	}
}

// WithMarkdown sets parse mode to legacy Markdown
func (mb *MessageBuilder) WithMarkdown() *MessageBuilder {
	mb.parseMode = ParseModeMarkdown
	return mb
}

// WithKeyboard adds inline keyboard
func (mb *MessageBuilder) WithKeyboard(keyboard InlineKeyboardMarkup) *MessageBuilder {
	mb.keyboard = &keyboard
	return mb
}

// WithButtons adds buttons to inline keyboard
func (mb *MessageBuilder) WithButtons(buttons ...[]InlineKeyboardButton) *MessageBuilder {
	if len(buttons) == 0 {
		return mb
	}
	keyboard := NewInlineKeyboardMarkup(buttons...)
	mb.keyboard = &keyboard
	return mb
}

// NoPreview disables link previews
func (mb *MessageBuilder) NoPreview() *MessageBuilder {
	mb.disableWebPagePreview = true
	return mb
}

// Build returns the options for Bot.SendMessage
func (mb *MessageBuilder) Build() MessageOptions {
	return MessageOptions{
		Keyboard:              mb.keyboard,
		ParseMode:             mb.parseMode,
		DisableWebPagePreview: mb.disableWebPagePreview,
	}
}

// Send sends the message through bot
func (mb *MessageBuilder) Send(ctx context.Context, bot Bot) (int, error) {
	return bot.SendMessage(ctx, mb.chatID, mb.text, mb.Build())
}
