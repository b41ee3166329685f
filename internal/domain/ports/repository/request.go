package repository

import (
	"context"
	"time"

	"marketplace-spotlight/internal/domain/model"
)

// RequestRepository persists spotlight requests. The Mark* methods are
// conditional compare-and-swap updates: they apply the transition only when
// the row is still in the expected source status and report whether anything
// was applied, so concurrent actors cannot double-apply a transition.
type RequestRepository interface {
	Save(ctx context.Context, tx Tx, r *model.SpotlightRequest) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SpotlightRequest, error)
	ListByProject(ctx context.Context, tx Tx, projectID string) ([]*model.SpotlightRequest, error)
	ListByStatus(ctx context.Context, tx Tx, statuses ...model.RequestStatus) ([]*model.SpotlightRequest, error)
	ListNonTerminal(ctx context.Context, tx Tx) ([]*model.SpotlightRequest, error)
	// CountActive is the authoritative "is anything active" query; it is never
	// cached as a separate flag.
	CountActive(ctx context.Context, tx Tx) (int, error)
	CountOverlappingHolds(ctx context.Context, tx Tx, start, end time.Time, excludeID string) (int, error)
	HasNonTerminalForProject(ctx context.Context, tx Tx, projectID string, excludeID string) (bool, error)

	MarkApproved(ctx context.Context, tx Tx, id string, terms model.PaymentTerms, approvedAt time.Time) (bool, error)
	MarkRejected(ctx context.Context, tx Tx, id string, notes string) (bool, error)
	MarkPaid(ctx context.Context, tx Tx, id string) (bool, error)
	MarkActive(ctx context.Context, tx Tx, id string) (bool, error)
	MarkCompleted(ctx context.Context, tx Tx, id string, endDate *time.Time) (bool, error)
	MarkCancelled(ctx context.Context, tx Tx, id string, notes string) (bool, error)
	MarkExpired(ctx context.Context, tx Tx, id string) (bool, error)

	CountByStatus(ctx context.Context, tx Tx) (map[model.RequestStatus]int, error)
}
