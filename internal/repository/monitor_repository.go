package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/examly/examly-backend/internal/config"
	"github.com/examly/examly-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// MonitorRepository fans exam activity out to live monitor subscribers over
// Redis PubSub. Each exam gets its own channel so a teacher watching one
// exam never sees another exam's traffic.
type MonitorRepository struct {
	rdb *redis.Client
}

func NewMonitorRepository(rdb *redis.Client) *MonitorRepository {
	return &MonitorRepository{rdb: rdb}
}

// Publish broadcasts a monitor event on the exam's channel. Publishing to a
// channel with no subscribers is a no-op on the Redis side.
func (r *MonitorRepository) Publish(ctx context.Context, event model.MonitorEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal monitor event: %w", err)
	}

	channel := config.CacheKey.ExamMonitorChannel(event.ExamID.String())
	if err := r.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish monitor event: %w", err)
	}
	return nil
}

// Subscribe opens a subscription on the exam's monitor channel. The caller
// owns the returned PubSub and must Close it.
func (r *MonitorRepository) Subscribe(ctx context.Context, examID string) *redis.PubSub {
	return r.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID))
}
