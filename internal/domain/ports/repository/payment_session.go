package repository

import (
	"context"
	"time"

	"marketplace-spotlight/internal/domain/model"
)

type PaymentSessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.PaymentSession) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentSession, error)
	// FindCurrentByRequest returns the non-expired session for a request, or
	// domain.ErrNotFound when none exists.
	FindCurrentByRequest(ctx context.Context, tx Tx, requestID string) (*model.PaymentSession, error)
	// FindLatestByRequest returns the most recent session regardless of
	// status; used by the late-payment reconciliation path.
	FindLatestByRequest(ctx context.Context, tx Tx, requestID string) (*model.PaymentSession, error)
	// MarkConfirmed records the matching tx hash and flips the session to
	// confirmed unless it already is; reports whether anything was applied.
	// An expired session may still confirm (late payment), the request CAS is
	// what guards the paid transition.
	MarkConfirmed(ctx context.Context, tx Tx, id string, txHash string) (bool, error)
	// MarkExpiredByRequest expires the awaiting session of a request, if any.
	MarkExpiredByRequest(ctx context.Context, tx Tx, requestID string) error
	ListAwaitingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentSession, error)
}
