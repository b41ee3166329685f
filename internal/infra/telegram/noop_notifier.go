package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"marketplace-spotlight/internal/domain/ports/adapter"
)

var _ adapter.AdminNotifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of sending; used when no token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	l := logger.With().Str("component", "NoopNotifier").Logger()
	return &NoopNotifier{log: &l}
}

func (n *NoopNotifier) NotifyAdmins(ctx context.Context, message string) error {
	n.log.Info().Str("message", message).Msg("admin notification (noop)")
	return nil
}
