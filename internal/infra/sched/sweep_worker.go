package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketplace-spotlight/internal/infra/metrics"
	"marketplace-spotlight/internal/usecase"
)

// SweepWorker periodically applies wall-clock-driven transitions via the
// sweep use case. Runs are idempotent, so a failed tick is simply retried on
// the next one.
type SweepWorker struct {
	interval time.Duration
	sweepUC  usecase.SweepUseCase
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, sweepUC usecase.SweepUseCase, logger *zerolog.Logger) *SweepWorker {
	swLog := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{
		interval: interval,
		sweepUC:  sweepUC,
		log:      &swLog,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			report, err := w.sweepUC.RunSweep(ctx, time.Now())
			if err != nil {
				w.log.Error().Err(err).Msg("sweep error")
			}
			metrics.AddSweepTransitions(report.Expired, report.Settled, report.Activated, report.Completed)
			if counts, err := w.sweepUC.StatusCounts(ctx); err == nil {
				metrics.SetRequestsTotal(counts)
			}
		}
	}
}
