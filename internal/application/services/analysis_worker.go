package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/contentloop/contentloop/internal/domain/providers"
	"github.com/contentloop/contentloop/internal/domain/repositories"
)

// expirySweepInterval is how often the worker sweeps actionable signals past
// their retention window.
const expirySweepInterval = time.Hour

// AnalysisWorker consumes analysis tasks from the queue and runs the pattern
// analyzer over them. It also owns the periodic signal-expiry sweep.
type AnalysisWorker struct {
	queue     providers.AnalysisQueue
	analyzer  *PatternAnalyzerService
	signals   repositories.SignalRepository
	retention time.Duration
	workers   int
	logger    zerolog.Logger
}

// NewAnalysisWorker creates a worker pool over the analysis queue.
func NewAnalysisWorker(
	queue providers.AnalysisQueue,
	analyzer *PatternAnalyzerService,
	signals repositories.SignalRepository,
	retention time.Duration,
	workers int,
	logger zerolog.Logger,
) *AnalysisWorker {
	if workers <= 0 {
		workers = 1
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &AnalysisWorker{
		queue:     queue,
		analyzer:  analyzer,
		signals:   signals,
		retention: retention,
		workers:   workers,
		logger:    logger,
	}
}

// Run recovers tasks stranded by a previous process, then consumes the queue
// until the context is cancelled.
func (w *AnalysisWorker) Run(ctx context.Context) {
	recovered, err := w.queue.RecoverInFlight(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to recover in-flight analysis tasks")
	} else if recovered > 0 {
		w.logger.Info().Int("count", recovered).Msg("recovered in-flight analysis tasks")
	}

	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.consume(ctx, id)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.sweepExpired(ctx)
	}()

	wg.Wait()
}

func (w *AnalysisWorker) consume(ctx context.Context, id int) {
	logger := w.logger.With().Int("worker", id).Logger()
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			// A cancelled context or a closed queue both mean shutdown.
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Err(err).Msg("failed to dequeue analysis task")
			continue
		}

		if err := w.analyzer.AnalyzeRun(ctx, task.RunID); err != nil {
			logger.Error().Err(err).Str("run_id", task.RunID).Msg("analysis task failed, requeueing")
			if nackErr := w.queue.Nack(ctx, *task); nackErr != nil {
				logger.Error().Err(nackErr).Str("run_id", task.RunID).Msg("failed to requeue analysis task")
			}
			continue
		}

		if err := w.queue.Ack(ctx, *task); err != nil {
			logger.Error().Err(err).Str("run_id", task.RunID).Msg("failed to ack analysis task")
		}
	}
}

// sweepExpired periodically retires signals older than the retention window.
// The sweep is idempotent, so running it on every worker instance is fine.
func (w *AnalysisWorker) sweepExpired(ctx context.Context) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-w.retention)
			expired, err := w.signals.MarkExpired(ctx, cutoff)
			if err != nil {
				w.logger.Error().Err(err).Msg("failed to expire stale signals")
				continue
			}
			if expired > 0 {
				w.logger.Info().Int64("count", expired).Time("cutoff", cutoff).Msg("expired stale signals")
			}
		}
	}
}
