// Package queue runs the worker loop: job IDs come off a broker, prompts are
// built and sent to the generative model, and results land back in the store.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/docgate/docgate/internal/enhance"
	"github.com/docgate/docgate/internal/gemini"
	"github.com/docgate/docgate/internal/job"
	"github.com/docgate/docgate/internal/prompt"
	"github.com/docgate/docgate/internal/report"
	"github.com/docgate/docgate/internal/webhook"
)

// SSEEvent represents a Server-Sent Events event.
type SSEEvent struct {
	Event string // "status", "result"
	Data  string // JSON string
}

// Queue coordinates the broker, the workers, and result fan-out.
type Queue struct {
	broker      Broker
	store       job.Store
	gen         gemini.Generator
	reporter    *report.Reporter
	hooks       *webhook.Sender
	concurrency int

	mu   sync.RWMutex
	subs map[string][]chan SSEEvent
}

// New creates a Queue. reporter and hooks may be nil-safe no-ops but must not
// be nil pointers from the caller's perspective; use report.New("") and
// webhook.NewSender() for disabled variants.
func New(broker Broker, store job.Store, gen gemini.Generator, reporter *report.Reporter, hooks *webhook.Sender, concurrency int) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Queue{
		broker:      broker,
		store:       store,
		gen:         gen,
		reporter:    reporter,
		hooks:       hooks,
		concurrency: concurrency,
		subs:        make(map[string][]chan SSEEvent),
	}
}

// Enqueue hands a job ID to the broker.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	return q.broker.Enqueue(ctx, jobID)
}

// BrokerKind reports which broker backs the queue, for health output.
func (q *Queue) BrokerKind() string { return q.broker.Kind() }

// Start launches the worker goroutines.
func (q *Queue) Start(ctx context.Context) {
	for range q.concurrency {
		go q.runWorker(ctx)
	}
}

// Recovery resets jobs stuck in "running" (e.g. after a crash) back to
// "pending" and re-enqueues them.
func (q *Queue) Recovery(ctx context.Context) error {
	ids, err := q.store.ResetRunning(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := q.Enqueue(ctx, id); err != nil {
			slog.Error("recovery: enqueue failed", "job_id", id, "error", err)
		}
	}
	if len(ids) > 0 {
		slog.Info("recovery: re-enqueued interrupted jobs", "count", len(ids))
	}
	return nil
}

// StartCleanup periodically deletes terminal jobs older than ttlHours.
func (q *Queue) StartCleanup(ctx context.Context, ttlHours, intervalMinutes int) {
	if ttlHours <= 0 || intervalMinutes <= 0 {
		return
	}
	type terminalDeleter interface {
		DeleteTerminalBefore(ctx context.Context, before time.Time) (int64, error)
	}
	td, ok := q.store.(terminalDeleter)
	if !ok {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-time.Duration(ttlHours) * time.Hour)
				n, err := td.DeleteTerminalBefore(ctx, cutoff)
				if err != nil {
					slog.Error("cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("cleanup removed old jobs", "count", n)
				}
			}
		}
	}()
}

// Subscribe creates a buffered SSE channel for a job and returns it.
func (q *Queue) Subscribe(jobID string) chan SSEEvent {
	ch := make(chan SSEEvent, 16)
	q.mu.Lock()
	q.subs[jobID] = append(q.subs[jobID], ch)
	q.mu.Unlock()
	return ch
}

// Unsubscribe removes an SSE channel from the map.
func (q *Queue) Unsubscribe(jobID string, ch chan SSEEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	chans := q.subs[jobID]
	for i, c := range chans {
		if c == ch {
			q.subs[jobID] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(q.subs[jobID]) == 0 {
		delete(q.subs, jobID)
	}
}

// runWorker is a worker loop: dequeues job IDs and executes them until ctx is done.
func (q *Queue) runWorker(ctx context.Context) {
	for {
		jobID, err := q.broker.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("worker: dequeue failed", "error", err)
			continue
		}
		q.Execute(ctx, jobID)
	}
}

// Execute runs a single job to its terminal state: pending → running →
// done|failed. The synchronous submission path calls this directly; the
// worker loop calls it for every dequeued ID.
func (q *Queue) Execute(ctx context.Context, jobID string) {
	if err := q.store.MarkRunning(ctx, jobID); err != nil {
		slog.Error("worker: mark running failed", "job_id", jobID, "error", err)
		return
	}
	q.notify(jobID, SSEEvent{Event: "status", Data: `{"status":"running"}`})

	j, err := q.store.Get(ctx, jobID)
	if err != nil {
		slog.Error("worker: load job failed", "job_id", jobID, "error", err)
		q.finalize(ctx, jobID, "", "failed to load job", "")
		return
	}
	if j == nil {
		slog.Warn("worker: job not found (deleted?)", "job_id", jobID)
		return
	}

	p, err := prompt.Build(prompt.Request{Mode: j.Mode, Input: j.Input, Topic: j.Topic})
	if err != nil {
		// Requests are validated before a job row exists, so a build failure
		// here means the stored row is bad.
		q.finalize(ctx, jobID, "", err.Error(), j.CallbackURL)
		return
	}

	result, genErr := q.gen.Generate(ctx, p)

	if genErr == nil && j.Enhance != nil {
		result = enhance.Apply(result, *j.Enhance)
	}

	errMsg := ""
	if genErr != nil {
		errMsg = genErr.Error()
		q.reporter.Capture(genErr)
		slog.Error("worker: generate failed", "job_id", jobID, "mode", j.Mode, "error", genErr)
	}

	q.finalize(ctx, jobID, result, errMsg, j.CallbackURL)
}

// finalize records the terminal state and fans it out to SSE subscribers and
// the webhook callback, if any.
func (q *Queue) finalize(ctx context.Context, jobID, result, errMsg, callbackURL string) {
	status := job.StatusDone
	if errMsg != "" {
		status = job.StatusFailed
		result = ""
	}

	if err := q.store.UpdateStatus(ctx, jobID, status, result, errMsg); err != nil {
		slog.Error("worker: update status failed", "job_id", jobID, "error", err)
	}

	payload, _ := json.Marshal(map[string]string{
		"job_id": jobID,
		"status": string(status),
		"result": result,
		"error":  errMsg,
	})
	q.notifyAndClose(jobID, SSEEvent{Event: "result", Data: string(payload)})

	if callbackURL != "" && q.hooks != nil {
		q.hooks.Send(context.WithoutCancel(ctx), callbackURL, payload)
	}
}

// notify sends an event to all subscribers of a job without blocking.
func (q *Queue) notify(jobID string, event SSEEvent) {
	q.mu.RLock()
	chans := q.subs[jobID]
	q.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ch <- event:
		default:
		}
	}
}

// notifyAndClose sends the final event and closes all channels for the job.
func (q *Queue) notifyAndClose(jobID string, event SSEEvent) {
	q.mu.Lock()
	chans := q.subs[jobID]
	delete(q.subs, jobID)
	q.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- event:
		default:
		}
		close(ch)
	}
}
