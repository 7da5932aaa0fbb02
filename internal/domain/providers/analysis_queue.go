package providers

import (
	"context"
	"time"
)

// AnalysisTask asks the worker to analyze feedback for one generation run.
// The run id doubles as the idempotency key: delivery is at-least-once.
type AnalysisTask struct {
	RunID      string    `json:"run_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// AnalysisQueue defines the interface for the background analysis task queue.
type AnalysisQueue interface {
	// Enqueue adds a task. Returns immediately; processing is decoupled.
	Enqueue(ctx context.Context, task AnalysisTask) error

	// Dequeue blocks until a task is available or the context is done.
	// A dequeued task stays in-flight until Ack or Nack.
	Dequeue(ctx context.Context) (*AnalysisTask, error)

	// Ack removes a completed task from the in-flight set.
	Ack(ctx context.Context, task AnalysisTask) error

	// Nack returns a failed task to the queue for redelivery.
	Nack(ctx context.Context, task AnalysisTask) error

	// RecoverInFlight requeues tasks left in-flight by a previous process.
	// Safe to call on startup.
	RecoverInFlight(ctx context.Context) (int, error)

	// Close releases queue resources.
	Close() error
}
