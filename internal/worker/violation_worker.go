package worker

import (
	"context"
	"errors"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/examly/examly-backend/internal/repository"
	"github.com/rs/zerolog"
)

const (
	batchSize    = 64
	blockTimeout = 5 * time.Second
	retryBackoff = time.Second
)

// ViolationPersister writes violation batches, returning any rows that could
// not be written. Implemented by repository.SubmissionRepository.
type ViolationPersister interface {
	InsertViolations(ctx context.Context, events []model.ViolationEvent) ([]model.ViolationEvent, error)
}

// ViolationWorker drains the violation queue into PostgreSQL in batches.
// Events that fail to persist are requeued rather than dropped.
type ViolationWorker struct {
	queue *repository.ViolationQueue
	store ViolationPersister
	log   zerolog.Logger
}

func NewViolationWorker(queue *repository.ViolationQueue, store ViolationPersister, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		queue: queue,
		store: store,
		log:   log.With().Str("component", "violation_worker").Logger(),
	}
}

// Run blocks until ctx is canceled.
func (w *ViolationWorker) Run(ctx context.Context) {
	w.log.Info().Msg("violation worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("violation worker stopped")
			return
		default:
		}

		events, err := w.queue.DequeueBatch(ctx, batchSize, blockTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			w.log.Error().Err(err).Msg("dequeue failed")
			sleepCtx(ctx, retryBackoff)
			continue
		}
		if len(events) == 0 {
			continue
		}

		failed, err := w.store.InsertViolations(ctx, events)
		if err != nil {
			w.log.Error().Err(err).
				Int("batch", len(events)).
				Int("failed", len(failed)).
				Msg("persist failed")
			if len(failed) > 0 {
				if rqErr := w.queue.Requeue(ctx, failed); rqErr != nil {
					w.log.Error().Err(rqErr).Int("events", len(failed)).Msg("requeue failed, events lost")
				}
			}
			sleepCtx(ctx, retryBackoff)
			continue
		}

		w.log.Debug().Int("batch", len(events)).Msg("violations persisted")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
