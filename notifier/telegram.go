package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrRecipientBlocked means the recipient blocked the bot or deleted their
// account; retrying will never succeed
var ErrRecipientBlocked = errors.New("recipient blocked the bot")

// SendOptions controls how a message is rendered by Telegram
type SendOptions struct {
	MarkdownV2     bool
	DisablePreview bool
}

// Sender delivers a single text message to a chat
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, opts SendOptions) error
}

// TelegramSender implements Sender with the Telegram Bot API
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender connects to the Telegram Bot API with the given token
func NewTelegramSender(token string) (*TelegramSender, error) {
	return NewTelegramSenderWithEndpoint(token, tgbotapi.APIEndpoint)
}

// NewTelegramSenderWithEndpoint connects to a Bot API compatible endpoint.
// endpoint is a format string taking the token and the method name.
func NewTelegramSenderWithEndpoint(token, endpoint string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSender{bot: bot}, nil
}

// Username returns the bot's username
func (ts *TelegramSender) Username() string {
	return ts.bot.Self.UserName
}

// Send implements the Sender interface. A blocked recipient yields an error
// wrapping ErrRecipientBlocked.
func (ts *TelegramSender) Send(ctx context.Context, chatID int64, text string, opts SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if opts.MarkdownV2 {
		msg.ParseMode = tgbotapi.ModeMarkdownV2
	}
	msg.DisableWebPagePreview = opts.DisablePreview

	if _, err := ts.bot.Send(msg); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps Telegram API errors to ErrRecipientBlocked where applicable
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrRecipientBlocked, apiErr.Message)
	}
	var apiErrValue tgbotapi.Error
	if errors.As(err, &apiErrValue) && apiErrValue.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrRecipientBlocked, apiErrValue.Message)
	}

	text := err.Error()
	if strings.Contains(text, "Forbidden") || strings.Contains(text, "blocked") {
		return fmt.Errorf("%w: %s", ErrRecipientBlocked, text)
	}
	return err
}
