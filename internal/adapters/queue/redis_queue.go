package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contentloop/contentloop/internal/domain/providers"
	redisclient "github.com/contentloop/contentloop/internal/infrastructure/clients/redis"
)

const dequeueBlockTimeout = 5 * time.Second

// RedisQueue implements the AnalysisQueue interface on a Redis list pair:
// pending tasks live on the main list, dequeued tasks are moved atomically to
// a processing list until acked. Tasks stranded on the processing list by a
// crashed worker are recovered on the next startup, which gives at-least-once
// delivery.
type RedisQueue struct {
	client     *redisclient.Client
	queueKey   string
	pendingKey string
}

// NewRedisQueue creates a new Redis-backed analysis queue.
func NewRedisQueue(client *redisclient.Client, queueKey string) providers.AnalysisQueue {
	return &RedisQueue{
		client:     client,
		queueKey:   queueKey,
		pendingKey: queueKey + ":processing",
	}
}

// Enqueue pushes a task onto the pending list.
func (q *RedisQueue) Enqueue(ctx context.Context, task providers.AnalysisTask) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis task: %w", err)
	}
	if err := q.client.Client().LPush(ctx, q.queueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue analysis task: %w", err)
	}
	return nil
}

// Dequeue blocks until a task is available, moving it to the processing list
// in the same Redis operation.
func (q *RedisQueue) Dequeue(ctx context.Context) (*providers.AnalysisTask, error) {
	for {
		data, err := q.client.Client().BLMove(ctx, q.queueKey, q.pendingKey, "RIGHT", "LEFT", dequeueBlockTimeout).Result()
		if errors.Is(err, redis.Nil) {
			// Timed out with an empty queue; poll again unless cancelled.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
				continue
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to dequeue analysis task: %w", err)
		}

		var task providers.AnalysisTask
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			// Drop the malformed payload so it cannot wedge the queue.
			q.client.Client().LRem(ctx, q.pendingKey, 1, data)
			return nil, fmt.Errorf("failed to unmarshal analysis task: %w", err)
		}
		return &task, nil
	}
}

// Ack removes a completed task from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, task providers.AnalysisTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis task: %w", err)
	}
	if err := q.client.Client().LRem(ctx, q.pendingKey, 1, data).Err(); err != nil {
		return fmt.Errorf("failed to ack analysis task: %w", err)
	}
	return nil
}

// Nack moves a failed task from the processing list back onto the queue.
func (q *RedisQueue) Nack(ctx context.Context, task providers.AnalysisTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis task: %w", err)
	}
	pipe := q.client.Client().TxPipeline()
	pipe.LRem(ctx, q.pendingKey, 1, data)
	pipe.LPush(ctx, q.queueKey, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack analysis task: %w", err)
	}
	return nil
}

// RecoverInFlight requeues tasks a previous process left on the processing
// list. Call once on worker startup.
func (q *RedisQueue) RecoverInFlight(ctx context.Context) (int, error) {
	recovered := 0
	for {
		_, err := q.client.Client().LMove(ctx, q.pendingKey, q.queueKey, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			return recovered, nil
		}
		if err != nil {
			return recovered, fmt.Errorf("failed to recover in-flight tasks: %w", err)
		}
		recovered++
	}
}

// Close is a no-op; the shared Redis client is closed by its owner.
func (q *RedisQueue) Close() error {
	return nil
}
