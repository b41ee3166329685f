// File: internal/infra/telegram/notifier.go
package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"marketplace-spotlight/internal/domain/ports/adapter"
)

var _ adapter.AdminNotifier = (*Notifier)(nil)

// Notifier pushes lifecycle events to the administrators' Telegram chats.
type Notifier struct {
	bot      *tgbotapi.BotAPI
	adminIDs []int64
	log      *zerolog.Logger
}

func NewNotifier(token string, adminIDs []int64, logger *zerolog.Logger) (*Notifier, error) {
	if token == "" {
		return nil, errors.New("telegram token empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "TelegramNotifier").Logger()
	return &Notifier{bot: bot, adminIDs: adminIDs, log: &l}, nil
}

func (n *Notifier) NotifyAdmins(ctx context.Context, message string) error {
	var firstErr error
	for _, id := range n.adminIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := tgbotapi.NewMessage(id, message)
		if _, err := n.bot.Send(msg); err != nil {
			n.log.Warn().Err(err).Int64("admin_id", id).Msg("send failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
