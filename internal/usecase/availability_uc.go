// File: internal/usecase/availability_uc.go
package usecase

import (
	"context"
	"time"

	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/domain/ports/repository"
)

var _ AvailabilityUseCase = (*availabilityUC)(nil)

// AvailabilityUseCase derives the calendar day-sets from the live request set.
// This is the advisory read used by the selection UI; committing transitions
// re-derive the same facts transactionally in the lifecycle manager.
type AvailabilityUseCase interface {
	Current(ctx context.Context) (model.Availability, error)
	CheckRange(ctx context.Context, start, end time.Time) error
}

type availabilityUC struct {
	requests repository.RequestRepository
	now      func() time.Time
}

func NewAvailabilityUseCase(requests repository.RequestRepository) *availabilityUC {
	return &availabilityUC{requests: requests, now: time.Now}
}

func (uc *availabilityUC) Current(ctx context.Context) (model.Availability, error) {
	reqs, err := uc.requests.ListNonTerminal(ctx, nil)
	if err != nil {
		return model.Availability{}, err
	}
	return model.BuildAvailability(reqs), nil
}

func (uc *availabilityUC) CheckRange(ctx context.Context, start, end time.Time) error {
	a, err := uc.Current(ctx)
	if err != nil {
		return err
	}
	return a.CheckSelectable(start, end, uc.now())
}
