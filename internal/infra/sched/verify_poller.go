package sched

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"marketplace-spotlight/internal/domain"
	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/domain/ports/repository"
	"marketplace-spotlight/internal/infra/metrics"
	"marketplace-spotlight/internal/infra/worker"
	"marketplace-spotlight/internal/usecase"
)

// VerifyPoller periodically re-verifies awaiting payment sessions against the
// chain lookup. This covers manual transfers (nothing triggers verification)
// and wallet payments whose first verify ran before the indexer caught up.
// Verifies within a tick fan out over a small worker pool so one slow lookup
// does not stall the batch.
type VerifyPoller struct {
	uc       usecase.PaymentUseCase
	sessions repository.PaymentSessionRepository
	pool     *worker.Pool
	interval time.Duration
	minAge   time.Duration // how old a session must be before polling it
	log      *zerolog.Logger
}

func NewVerifyPoller(uc usecase.PaymentUseCase, sessions repository.PaymentSessionRepository, interval, minAge time.Duration, logger *zerolog.Logger) *VerifyPoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if minAge <= 0 {
		minAge = 10 * time.Second
	}
	vpLog := logger.With().Str("component", "VerifyPoller").Logger()
	return &VerifyPoller{
		uc:       uc,
		sessions: sessions,
		pool:     worker.NewPool(4, logger),
		interval: interval,
		minAge:   minAge,
		log:      &vpLog,
	}
}

func (w *VerifyPoller) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting verify poller")
	w.pool.Start(ctx)
	defer w.pool.Stop()

	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping verify poller")
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *VerifyPoller) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.minAge)
	awaiting, err := w.sessions.ListAwaitingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list awaiting sessions failed")
		return
	}

	var wg sync.WaitGroup
	var unavailable atomic.Bool
	for _, s := range awaiting {
		requestID := s.RequestID
		wg.Add(1)
		task := func(taskCtx context.Context) error {
			defer wg.Done()
			if unavailable.Load() {
				return nil
			}
			session, err := w.uc.Verify(taskCtx, requestID)
			if errors.Is(err, domain.ErrVerificationUnavailable) {
				// indexer down; stop hammering it this tick
				metrics.IncPaymentVerification("unavailable")
				if unavailable.CompareAndSwap(false, true) {
					w.log.Warn().Msg("chain lookup unavailable; deferring to next tick")
				}
				return nil
			}
			if err != nil {
				metrics.IncPaymentVerification("error")
				w.log.Error().Err(err).Str("request_id", requestID).Msg("verify failed")
				return nil
			}
			if session.Status == model.SessionStatusConfirmed {
				metrics.IncPaymentVerification("confirmed")
				w.log.Info().Str("request_id", requestID).Msg("session confirmed by poller")
			} else {
				metrics.IncPaymentVerification("pending")
			}
			return nil
		}
		if err := w.pool.Submit(task); err != nil {
			wg.Done()
			w.log.Warn().Err(err).Str("request_id", requestID).Msg("verify deferred, pool saturated")
		}
	}
	wg.Wait()
}
