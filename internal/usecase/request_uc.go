// File: internal/usecase/request_uc.go
package usecase

import (
	"fmt"
	"hash/fnv"
	"time"

	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marketplace-spotlight/internal/domain"
	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/domain/ports/adapter"
	"marketplace-spotlight/internal/domain/ports/repository"
)

// Compile-time check
var _ RequestUseCase = (*requestUC)(nil)

// CreateRequestInput is the creator-supplied payload for a new booking attempt.
type CreateRequestInput struct {
	ProjectID    string
	RequesterID  string
	StartDate    time.Time
	EndDate      time.Time
	HeroImageURL string
	Message      string
}

// RequestUseCase is the authoritative lifecycle state machine. Every guarded
// transition re-validates the calendar and the single-active-placement
// invariant against a fresh snapshot inside a transaction before committing.
type RequestUseCase interface {
	Create(ctx context.Context, in CreateRequestInput) (*model.SpotlightRequest, error)
	Get(ctx context.Context, id string) (*model.SpotlightRequest, error)
	ListByProject(ctx context.Context, projectID string) ([]*model.SpotlightRequest, error)
	ListByStatus(ctx context.Context, statuses ...model.RequestStatus) ([]*model.SpotlightRequest, error)

	Approve(ctx context.Context, id string) (*model.SpotlightRequest, error)
	ApproveFree(ctx context.Context, id string) (*model.SpotlightRequest, error)
	Reject(ctx context.Context, id, reason string) (*model.SpotlightRequest, error)
	Cancel(ctx context.Context, id, reason string) (*model.SpotlightRequest, error)
	EndEarly(ctx context.Context, id string) (*model.SpotlightRequest, error)
}

type requestUC struct {
	requests repository.RequestRepository
	tm       repository.TransactionManager
	pricing  model.Pricing
	notifier adapter.AdminNotifier
	log      *zerolog.Logger
	now      func() time.Time
}

func NewRequestUseCase(requests repository.RequestRepository, tm repository.TransactionManager, pricing model.Pricing, notifier adapter.AdminNotifier, logger *zerolog.Logger) *requestUC {
	l := logger.With().Str("component", "RequestUC").Logger()
	return &requestUC{
		requests: requests,
		tm:       tm,
		pricing:  pricing,
		notifier: notifier,
		log:      &l,
		now:      time.Now,
	}
}

// calendarLockKey serializes guarded transitions against the shared calendar.
// The spotlight slot is a single global resource, so one advisory key suffices.
var calendarLockKey = hashToInt64("spotlight:calendar")

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

func lockCalendar(ctx context.Context, tx repository.Tx) error {
	pgtx, ok := tx.(pgx.Tx)
	if !ok {
		// in-memory tx manager (tests); the tx manager itself serializes
		return nil
	}
	_, err := pgtx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", calendarLockKey)
	return err
}

func (uc *requestUC) Create(ctx context.Context, in CreateRequestInput) (*model.SpotlightRequest, error) {
	now := uc.now()
	req, err := model.NewSpotlightRequest(uuid.NewString(), in.ProjectID, in.RequesterID, in.StartDate, in.EndDate, in.HeroImageURL, in.Message, uc.pricing, now)
	if err != nil {
		return nil, err
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockCalendar(ctx, tx); err != nil {
			return err
		}
		inFlight, err := uc.requests.HasNonTerminalForProject(ctx, tx, req.ProjectID, "")
		if err != nil {
			return err
		}
		if inFlight {
			return domain.ErrRequestInProgress
		}
		all, err := uc.requests.ListNonTerminal(ctx, tx)
		if err != nil {
			return err
		}
		if err := model.BuildAvailability(all).CheckSelectable(req.StartDate, req.EndDate, now); err != nil {
			return err
		}
		return uc.requests.Save(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("request_id", req.ID).Str("project_id", req.ProjectID).
		Str("start", req.StartDate.Format(model.DayKeyFormat)).
		Str("end", req.EndDate.Format(model.DayKeyFormat)).
		Int64("price", req.Terms.AmountMinorUnits).
		Msg("spotlight request created")
	uc.notify(ctx, fmt.Sprintf("New spotlight request %s: project %s, %s to %s (%d days)",
		req.ID, req.ProjectID, req.StartDate.Format(model.DayKeyFormat), req.EndDate.Format(model.DayKeyFormat), req.DurationDays))
	return req, nil
}

func (uc *requestUC) Get(ctx context.Context, id string) (*model.SpotlightRequest, error) {
	return uc.requests.FindByID(ctx, nil, id)
}

func (uc *requestUC) ListByProject(ctx context.Context, projectID string) ([]*model.SpotlightRequest, error) {
	return uc.requests.ListByProject(ctx, nil, projectID)
}

func (uc *requestUC) ListByStatus(ctx context.Context, statuses ...model.RequestStatus) ([]*model.SpotlightRequest, error) {
	return uc.requests.ListByStatus(ctx, nil, statuses...)
}

// Approve applies pending->approved after re-checking, at commit time, that
// nothing is active and the range is still free of confirmed holds.
func (uc *requestUC) Approve(ctx context.Context, id string) (*model.SpotlightRequest, error) {
	return uc.approve(ctx, id, false)
}

// ApproveFree is Approve with payment waived; the request never enters the
// payment-pending path and the sweep settles it without a session.
func (uc *requestUC) ApproveFree(ctx context.Context, id string) (*model.SpotlightRequest, error) {
	return uc.approve(ctx, id, true)
}

func (uc *requestUC) approve(ctx context.Context, id string, free bool) (*model.SpotlightRequest, error) {
	var out *model.SpotlightRequest
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockCalendar(ctx, tx); err != nil {
			return err
		}
		req, err := uc.requests.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status.IsTerminal() {
			return domain.ErrTerminalState
		}
		if req.Status != model.RequestStatusPending {
			return domain.ErrConflict
		}

		active, err := uc.requests.CountActive(ctx, tx)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrConflict
		}
		held, err := uc.requests.CountOverlappingHolds(ctx, tx, req.StartDate, req.EndDate, req.ID)
		if err != nil {
			return err
		}
		if held > 0 {
			return domain.ErrDateUnavailable
		}

		terms := req.Terms
		if free {
			terms = model.FreePromotion()
		}
		now := uc.now()
		applied, err := uc.requests.MarkApproved(ctx, tx, req.ID, terms, now)
		if err != nil {
			return err
		}
		if !applied {
			return domain.ErrConflict
		}
		req.Status = model.RequestStatusApproved
		req.Terms = terms
		req.ApprovedAt = &now
		req.UpdatedAt = now
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("request_id", out.ID).Bool("free_promo", free).Msg("request approved")
	return out, nil
}

func (uc *requestUC) Reject(ctx context.Context, id, reason string) (*model.SpotlightRequest, error) {
	return uc.adminTransition(ctx, id, "rejected", func(ctx context.Context, tx repository.Tx, req *model.SpotlightRequest) (bool, error) {
		if req.Status != model.RequestStatusPending {
			return false, domain.ErrConflict
		}
		applied, err := uc.requests.MarkRejected(ctx, tx, id, reason)
		if applied {
			req.Status = model.RequestStatusRejected
			req.AdminNotes = reason
		}
		return applied, err
	})
}

// Cancel voids a paid request before activation.
func (uc *requestUC) Cancel(ctx context.Context, id, reason string) (*model.SpotlightRequest, error) {
	return uc.adminTransition(ctx, id, "cancelled", func(ctx context.Context, tx repository.Tx, req *model.SpotlightRequest) (bool, error) {
		if req.Status != model.RequestStatusPaid {
			return false, domain.ErrConflict
		}
		applied, err := uc.requests.MarkCancelled(ctx, tx, id, reason)
		if applied {
			req.Status = model.RequestStatusCancelled
			req.AdminNotes = reason
		}
		return applied, err
	})
}

// EndEarly completes the active placement immediately, freeing the remaining
// days for new bookings.
func (uc *requestUC) EndEarly(ctx context.Context, id string) (*model.SpotlightRequest, error) {
	return uc.adminTransition(ctx, id, "ended early", func(ctx context.Context, tx repository.Tx, req *model.SpotlightRequest) (bool, error) {
		if req.Status != model.RequestStatusActive {
			return false, domain.ErrConflict
		}
		end := model.Day(uc.now())
		applied, err := uc.requests.MarkCompleted(ctx, tx, id, &end)
		if applied {
			req.Status = model.RequestStatusCompleted
			req.EndDate = end
		}
		return applied, err
	})
}

func (uc *requestUC) adminTransition(ctx context.Context, id, action string, apply func(ctx context.Context, tx repository.Tx, req *model.SpotlightRequest) (bool, error)) (*model.SpotlightRequest, error) {
	var out *model.SpotlightRequest
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockCalendar(ctx, tx); err != nil {
			return err
		}
		req, err := uc.requests.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status.IsTerminal() {
			return domain.ErrTerminalState
		}
		applied, err := apply(ctx, tx, req)
		if err != nil {
			return err
		}
		if !applied {
			return domain.ErrConflict
		}
		req.UpdatedAt = uc.now()
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("request_id", id).Msg("request " + action)
	return out, nil
}

func (uc *requestUC) notify(ctx context.Context, msg string) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.NotifyAdmins(ctx, msg); err != nil {
		uc.log.Warn().Err(err).Msg("admin notification failed")
	}
}
