package queue

import (
	"context"
	"fmt"
)

// Broker hands job IDs from submission to execution. Implementations must be
// FIFO and deliver each popped ID to exactly one caller.
type Broker interface {
	Enqueue(ctx context.Context, jobID string) error
	// Dequeue blocks until a job ID is available or ctx is done.
	Dequeue(ctx context.Context) (string, error)
	Kind() string
	Close() error
}

// MemoryBroker is a bounded in-process FIFO channel. It is the default when
// no Redis broker is configured; job submission and execution then live in
// the same process.
type MemoryBroker struct {
	jobs chan string
}

func NewMemoryBroker(size int) *MemoryBroker {
	if size <= 0 {
		size = 1000
	}
	return &MemoryBroker{jobs: make(chan string, size)}
}

// Enqueue adds a job ID. Returns an error if the queue is full rather than
// blocking the submitting request.
func (b *MemoryBroker) Enqueue(_ context.Context, jobID string) error {
	select {
	case b.jobs <- jobID:
		return nil
	default:
		return fmt.Errorf("queue full: cannot enqueue job %s", jobID)
	}
}

func (b *MemoryBroker) Dequeue(ctx context.Context) (string, error) {
	select {
	case id := <-b.jobs:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (b *MemoryBroker) Kind() string { return "memory" }

func (b *MemoryBroker) Close() error { return nil }
