package job

import "context"

// Store persists and retrieves jobs. The store is the source of truth for a
// job's state; brokers only carry job IDs.
type Store interface {
	Create(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	// UpdateStatus moves a job to a terminal state. Exactly one of result and
	// errMsg is non-empty.
	UpdateStatus(ctx context.Context, id string, status Status, result, errMsg string) error
	MarkRunning(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// ResetRunning moves all "running" jobs back to "pending" and returns their IDs.
	// Called at startup to recover jobs that were interrupted by a crash.
	ResetRunning(ctx context.Context) ([]string, error)
	// List returns a page of jobs ordered by created_at DESC, plus the total count.
	List(ctx context.Context, limit, offset int) ([]*Job, int, error)
}
