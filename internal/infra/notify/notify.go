// Package notify delivers short push messages to a user's chat.
package notify

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Pusher sends text to a chat.
type Pusher interface {
	Push(ctx context.Context, chatID int64, text string) error
}

// Noop discards every message. It is used when no bot token is set.
type Noop struct{}

func (Noop) Push(context.Context, int64, string) error { return nil }

// Telegram pushes messages through the Telegram Bot API.
type Telegram struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewTelegram authenticates the bot. An empty endpoint selects the
// public API.
func NewTelegram(token, endpoint string, httpClient *http.Client, logger *zap.Logger) (*Telegram, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("account", api.Self.UserName))
	return &Telegram{api: api, logger: logger}, nil
}

// Push sends text as an HTML message.
func (t *Telegram) Push(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Warn("telegram push failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
