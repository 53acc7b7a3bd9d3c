package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examly/examly-backend/internal/config"
	"github.com/examly/examly-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// ViolationQueue buffers reported proctoring violations in a Redis list so
// the request path never waits on a database write. A background worker
// drains the list in batches.
type ViolationQueue struct {
	rdb *redis.Client
}

func NewViolationQueue(rdb *redis.Client) *ViolationQueue {
	return &ViolationQueue{rdb: rdb}
}

// Enqueue pushes a violation event onto the persistence queue.
func (q *ViolationQueue) Enqueue(ctx context.Context, ev model.ViolationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal violation: %w", err)
	}

	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue violation: %w", err)
	}
	return nil
}

// DequeueBatch blocks up to timeout for the first event, then drains up to
// max-1 more without blocking. Returns an empty slice on timeout.
func (q *ViolationQueue) DequeueBatch(ctx context.Context, max int, timeout time.Duration) ([]model.ViolationEvent, error) {
	res, err := q.rdb.BLPop(ctx, timeout, config.WorkerKey.PersistViolationsQueue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	events := make([]model.ViolationEvent, 0, max)
	events = appendDecoded(events, res[1])

	for len(events) < max {
		raw, err := q.rdb.LPop(ctx, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return events, err
		}
		events = appendDecoded(events, raw)
	}

	return events, nil
}

// Requeue puts events back at the head of the queue after a failed write.
func (q *ViolationQueue) Requeue(ctx context.Context, events []model.ViolationEvent) error {
	for i := len(events) - 1; i >= 0; i-- {
		payload, err := json.Marshal(events[i])
		if err != nil {
			continue
		}
		if err := q.rdb.LPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
			return fmt.Errorf("requeue violation: %w", err)
		}
	}
	return nil
}

func appendDecoded(events []model.ViolationEvent, raw string) []model.ViolationEvent {
	var ev model.ViolationEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		// Malformed entries are dropped, not retried forever.
		return events
	}
	return append(events, ev)
}
