// File: internal/usecase/sweep_uc.go
package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/domain/ports/adapter"
	"marketplace-spotlight/internal/domain/ports/repository"
)

var _ SweepUseCase = (*sweepUC)(nil)

// SweepReport counts the transitions one sweep pass applied.
type SweepReport struct {
	Expired   int
	Settled   int // free promos moved approved->paid
	Activated int
	Completed int
}

// SweepUseCase applies all wall-clock-driven transitions. Every application
// is a conditional update, so overlapping sweep runs, or a sweep racing an
// administrator, cannot double-apply a transition.
type SweepUseCase interface {
	RunSweep(ctx context.Context, now time.Time) (SweepReport, error)
	// StatusCounts snapshots how many requests sit in each status.
	StatusCounts(ctx context.Context) (map[model.RequestStatus]int, error)
}

type sweepUC struct {
	requests  repository.RequestRepository
	sessions  repository.PaymentSessionRepository
	tm        repository.TransactionManager
	notifier  adapter.AdminNotifier
	payWindow time.Duration
	log       *zerolog.Logger
}

func NewSweepUseCase(requests repository.RequestRepository, sessions repository.PaymentSessionRepository, tm repository.TransactionManager, notifier adapter.AdminNotifier, payWindow time.Duration, logger *zerolog.Logger) *sweepUC {
	l := logger.With().Str("component", "SweepUC").Logger()
	return &sweepUC{
		requests:  requests,
		sessions:  sessions,
		tm:        tm,
		notifier:  notifier,
		payWindow: payWindow,
		log:       &l,
	}
}

// RunSweep evaluates deadlines against the supplied wall-clock instant. It is
// deliberately stateless: deadlines live in the store, so the sweep survives
// process restarts and is trivially idempotent.
func (uc *sweepUC) RunSweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport

	if err := uc.expireUnpaid(ctx, now, &report); err != nil {
		return report, err
	}
	if err := uc.settleFreePromos(ctx, &report); err != nil {
		return report, err
	}
	if err := uc.activateDue(ctx, now, &report); err != nil {
		return report, err
	}
	if err := uc.completeFinished(ctx, now, &report); err != nil {
		return report, err
	}

	if report != (SweepReport{}) {
		uc.log.Info().
			Int("expired", report.Expired).
			Int("settled", report.Settled).
			Int("activated", report.Activated).
			Int("completed", report.Completed).
			Msg("sweep applied transitions")
	}
	return report, nil
}

// expireUnpaid flips approved-but-unpaid requests whose payment window has
// elapsed, and expires their awaiting payment session with them.
func (uc *sweepUC) expireUnpaid(ctx context.Context, now time.Time, report *SweepReport) error {
	approved, err := uc.requests.ListByStatus(ctx, nil, model.RequestStatusApproved)
	if err != nil {
		return err
	}
	var expired []string
	for _, req := range approved {
		if !req.PaymentExpired(now, uc.payWindow) {
			continue
		}
		id := req.ID
		err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			applied, err := uc.requests.MarkExpired(ctx, tx, id)
			if err != nil {
				return err
			}
			if !applied {
				return nil
			}
			report.Expired++
			expired = append(expired, id)
			return uc.sessions.MarkExpiredByRequest(ctx, tx, id)
		})
		if err != nil {
			uc.log.Error().Err(err).Str("request_id", id).Msg("expiry transition failed")
		}
	}
	for _, id := range expired {
		uc.notify(ctx, fmt.Sprintf("Spotlight request %s expired unpaid", id))
	}
	return nil
}

// settleFreePromos moves free-promo approvals straight to paid; they never
// enter the payment-pending path.
func (uc *sweepUC) settleFreePromos(ctx context.Context, report *SweepReport) error {
	approved, err := uc.requests.ListByStatus(ctx, nil, model.RequestStatusApproved)
	if err != nil {
		return err
	}
	for _, req := range approved {
		if !req.Terms.Free() {
			continue
		}
		applied, err := uc.requests.MarkPaid(ctx, nil, req.ID)
		if err != nil {
			uc.log.Error().Err(err).Str("request_id", req.ID).Msg("free promo settle failed")
			continue
		}
		if applied {
			report.Settled++
		}
	}
	return nil
}

// activateDue starts at most one placement per pass. Candidates are processed
// in approvedAt order and the pass stops after the first successful
// activation, so two due requests can never both go active.
func (uc *sweepUC) activateDue(ctx context.Context, now time.Time, report *SweepReport) error {
	paid, err := uc.requests.ListByStatus(ctx, nil, model.RequestStatusPaid)
	if err != nil {
		return err
	}
	var due []*model.SpotlightRequest
	for _, req := range paid {
		if req.ActivationDue(now) {
			due = append(due, req)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		ti, tj := due[i].CreatedAt, due[j].CreatedAt
		if due[i].ApprovedAt != nil {
			ti = *due[i].ApprovedAt
		}
		if due[j].ApprovedAt != nil {
			tj = *due[j].ApprovedAt
		}
		return ti.Before(tj)
	})

	for _, req := range due {
		id := req.ID
		var activated bool
		err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := lockCalendar(ctx, tx); err != nil {
				return err
			}
			active, err := uc.requests.CountActive(ctx, tx)
			if err != nil {
				return err
			}
			if active > 0 {
				return nil
			}
			activated, err = uc.requests.MarkActive(ctx, tx, id)
			return err
		})
		if err != nil {
			uc.log.Error().Err(err).Str("request_id", id).Msg("activation transition failed")
			continue
		}
		if activated {
			report.Activated++
			uc.log.Info().Str("request_id", id).Msg("placement activated")
			break // one activation per pass
		}
	}
	return nil
}

func (uc *sweepUC) completeFinished(ctx context.Context, now time.Time, report *SweepReport) error {
	active, err := uc.requests.ListByStatus(ctx, nil, model.RequestStatusActive)
	if err != nil {
		return err
	}
	for _, req := range active {
		if !req.CompletionDue(now) {
			continue
		}
		applied, err := uc.requests.MarkCompleted(ctx, nil, req.ID, nil)
		if err != nil {
			uc.log.Error().Err(err).Str("request_id", req.ID).Msg("completion transition failed")
			continue
		}
		if applied {
			report.Completed++
			uc.log.Info().Str("request_id", req.ID).Msg("placement completed")
		}
	}
	return nil
}

func (uc *sweepUC) StatusCounts(ctx context.Context) (map[model.RequestStatus]int, error) {
	return uc.requests.CountByStatus(ctx, nil)
}

func (uc *sweepUC) notify(ctx context.Context, msg string) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.NotifyAdmins(ctx, msg); err != nil {
		uc.log.Warn().Err(err).Msg("admin notification failed")
	}
}
