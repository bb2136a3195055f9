// Package jobs runs background work items against a bounded worker pool while
// persisting their state for polling.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"lectern/internal/logging"
	"lectern/internal/services"
	"lectern/internal/store"
)

// fallbackMessage is shown for failures that carry no user-facing message.
const fallbackMessage = "Job failed."

// Progress reports completion percentage and a short status message from a
// running task.
type Progress func(percent int, message string)

// Task performs the work of one job and returns the path of its result
// artifact, if any.
type Task func(ctx context.Context, progress Progress) (resultPath string, err error)

type submission struct {
	job  *store.Job
	task Task
}

// Executor owns the worker pool and the persisted lifecycle of jobs.
type Executor struct {
	st      *store.Store
	logger  *slog.Logger
	workers int
	inline  bool

	onTerminal func(job *store.Job)

	mu      sync.Mutex
	pending []submission
	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// Option customizes the executor.
type Option func(*Executor)

// WithWorkers sets the pool size. Values below one are clamped to one.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithInline makes Submit run tasks synchronously before returning. Intended
// for tests and one-shot tooling.
func WithInline(inline bool) Option {
	return func(e *Executor) {
		e.inline = inline
	}
}

// WithTerminalHook registers a callback invoked after a job reaches a final
// state. The callback receives the refreshed job row.
func WithTerminalHook(hook func(job *store.Job)) Option {
	return func(e *Executor) {
		e.onTerminal = hook
	}
}

// NewExecutor builds an executor over the given store.
func NewExecutor(st *store.Store, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	exec := &Executor{
		st:      st,
		logger:  logging.WithComponent(logger, "jobs"),
		workers: 2,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(exec)
	}
	return exec
}

// Start launches the worker pool. It is a no-op in inline mode.
func (e *Executor) Start(ctx context.Context) {
	if e.inline || e.started {
		return
	}
	e.started = true
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}
}

// Close stops accepting dequeues and waits for in-flight tasks to finish.
// Queued tasks that have not started remain in the queued state.
func (e *Executor) Close() {
	e.mu.Lock()
	select {
	case <-e.done:
	default:
		close(e.done)
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// Submit persists a queued job and schedules its task. In inline mode the
// task runs to completion before Submit returns.
func (e *Executor) Submit(ctx context.Context, kind store.JobKind, task Task) (*store.Job, error) {
	if task == nil {
		return nil, fmt.Errorf("submit %s: task is nil", kind)
	}
	job, err := e.st.CreateJob(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", kind, err)
	}
	e.logger.Info("job queued",
		slog.String(logging.FieldJobID, job.ID),
		slog.String("kind", string(kind)))

	if e.inline {
		e.run(ctx, submission{job: job, task: task})
		return e.st.GetJob(ctx, job.ID)
	}

	e.mu.Lock()
	e.pending = append(e.pending, submission{job: job, task: task})
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return job, nil
}

// Get returns the persisted state of a job, or nil when unknown.
func (e *Executor) Get(ctx context.Context, id string) (*store.Job, error) {
	return e.st.GetJob(ctx, id)
}

func (e *Executor) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		sub, ok := e.dequeue()
		if ok {
			e.run(ctx, sub)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-e.wake:
		}
	}
}

func (e *Executor) dequeue() (submission, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return submission{}, false
	}
	sub := e.pending[0]
	e.pending = e.pending[1:]
	// Keep siblings runnable when more than one item is waiting.
	if len(e.pending) > 0 {
		select {
		case e.wake <- struct{}{}:
		default:
		}
	}
	return sub, true
}

func (e *Executor) run(ctx context.Context, sub submission) {
	jobID := sub.job.ID
	if err := e.st.MarkJobInProgress(ctx, jobID); err != nil {
		e.logger.Error("mark job in progress",
			slog.String(logging.FieldJobID, jobID),
			slog.String("error", err.Error()))
		return
	}

	progress := func(percent int, message string) {
		if err := e.st.UpdateJobProgress(ctx, jobID, percent, message); err != nil {
			e.logger.Warn("update job progress",
				slog.String(logging.FieldJobID, jobID),
				slog.String("error", err.Error()))
		}
	}

	resultPath, err := e.invoke(ctx, sub.task, progress)
	if err != nil {
		userMessage := services.UserMessage(err, fallbackMessage)
		e.logger.Error("job failed",
			slog.String(logging.FieldJobID, jobID),
			slog.String("error", err.Error()))
		if failErr := e.st.FailJob(ctx, jobID, userMessage); failErr != nil {
			e.logger.Error("record job failure",
				slog.String(logging.FieldJobID, jobID),
				slog.String("error", failErr.Error()))
		}
	} else {
		if completeErr := e.st.CompleteJob(ctx, jobID, resultPath); completeErr != nil {
			e.logger.Error("record job success",
				slog.String(logging.FieldJobID, jobID),
				slog.String("error", completeErr.Error()))
		} else {
			e.logger.Info("job completed", slog.String(logging.FieldJobID, jobID))
		}
	}

	if e.onTerminal != nil {
		if job, getErr := e.st.GetJob(ctx, jobID); getErr == nil && job != nil {
			e.onTerminal(job)
		}
	}
}

// invoke shields the pool from panicking tasks.
func (e *Executor) invoke(ctx context.Context, task Task, progress Progress) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return task(ctx, progress)
}
