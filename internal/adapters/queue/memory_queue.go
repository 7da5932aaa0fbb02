package queue

import (
	"context"
	"sync"

	"github.com/contentloop/contentloop/internal/domain/providers"
)

// MemoryQueue is a channel-backed AnalysisQueue for tests and local runs
// without Redis. In-flight tasks are tracked so Nack can redeliver, but
// nothing survives a process restart.
type MemoryQueue struct {
	tasks    chan providers.AnalysisTask
	mu       sync.Mutex
	inflight map[string]providers.AnalysisTask
	closed   bool
}

// NewMemoryQueue creates an in-memory analysis queue with the given capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 128
	}
	return &MemoryQueue{
		tasks:    make(chan providers.AnalysisTask, capacity),
		inflight: make(map[string]providers.AnalysisTask),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task providers.AnalysisTask) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*providers.AnalysisTask, error) {
	select {
	case task, ok := <-q.tasks:
		if !ok {
			return nil, context.Canceled
		}
		q.mu.Lock()
		q.inflight[task.RunID] = task
		q.mu.Unlock()
		return &task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Ack(ctx context.Context, task providers.AnalysisTask) error {
	q.mu.Lock()
	delete(q.inflight, task.RunID)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) Nack(ctx context.Context, task providers.AnalysisTask) error {
	q.mu.Lock()
	delete(q.inflight, task.RunID)
	q.mu.Unlock()
	return q.Enqueue(ctx, task)
}

// RecoverInFlight requeues tasks that were dequeued but never acked. Within a
// single process this only matters for tests that simulate worker crashes.
func (q *MemoryQueue) RecoverInFlight(ctx context.Context) (int, error) {
	q.mu.Lock()
	stranded := make([]providers.AnalysisTask, 0, len(q.inflight))
	for _, task := range q.inflight {
		stranded = append(stranded, task)
	}
	q.inflight = make(map[string]providers.AnalysisTask)
	q.mu.Unlock()

	for _, task := range stranded {
		if err := q.Enqueue(ctx, task); err != nil {
			return 0, err
		}
	}
	return len(stranded), nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	return nil
}
