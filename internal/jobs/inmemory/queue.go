package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/bookkeeper/internal/jobs"
	"github.com/google/uuid"
)

// ErrClosed is returned once the queue has been stopped.
var ErrClosed = errors.New("queue is closed")

const defaultMaxRetries = 3

// Queue publishes export jobs onto a buffered channel and runs them on a
// fixed pool of workers. Queued jobs are lost on restart; the store keeps
// their last known state for status queries.
type Queue struct {
	pending chan *jobs.ExportReportJob
	done    chan struct{}
	store   jobs.JobStore

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	workers int
	backoff time.Duration
	now     func() time.Time
}

// NewQueue creates a queue holding up to bufferSize jobs before
// PublishExportReport blocks. workers below 1 default to a single worker.
func NewQueue(bufferSize, workers int, store jobs.JobStore) *Queue {
	return &Queue{
		pending: make(chan *jobs.ExportReportJob, bufferSize),
		done:    make(chan struct{}),
		store:   store,
		workers: max(workers, 1),
		backoff: time.Second,
		now:     time.Now,
	}
}

func (q *Queue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// PublishExportReport fills in the job defaults, records it and queues it.
func (q *Queue) PublishExportReport(ctx context.Context, job *jobs.ExportReportJob) error {
	if q.isClosed() {
		return ErrClosed
	}

	q.withDefaults(job)
	if err := q.save(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case q.pending <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrClosed
	}
}

func (q *Queue) withDefaults(job *jobs.ExportReportJob) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now().UTC()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}
}

// Start launches the workers. They exit when ctx is cancelled or the
// queue is stopped.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	if q.isClosed() {
		return ErrClosed
	}

	q.wg.Add(q.workers)
	for range q.workers {
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.done:
					return
				case job := <-q.pending:
					q.run(ctx, job, handler)
				}
			}
		}()
	}
	return nil
}

// run executes one attempt and records its outcome.
func (q *Queue) run(ctx context.Context, job *jobs.ExportReportJob, handler jobs.JobHandler) {
	started := q.now().UTC()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &started
	_ = q.save(ctx, job)

	err := handler(ctx, job)

	finished := q.now().UTC()
	job.CompletedAt = &finished

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	case job.RetryCount < job.MaxRetries:
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		job.Error = err.Error()
	default:
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
	}
	_ = q.save(ctx, job)

	if job.Status == jobs.JobStatusRetrying {
		q.retryLater(ctx, *job)
	}
}

// retryLater republishes a copy of job after a linear backoff. A job that
// cannot be republished, typically because the queue stopped meanwhile, is
// marked failed so it does not stay retrying forever.
func (q *Queue) retryLater(ctx context.Context, job jobs.ExportReportJob) {
	time.AfterFunc(time.Duration(job.RetryCount)*q.backoff, func() {
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil

		err := q.PublishExportReport(ctx, &job)
		if err == nil {
			return
		}
		finished := q.now().UTC()
		job.Status = jobs.JobStatusFailed
		job.CompletedAt = &finished
		job.Error = fmt.Sprintf("retry not scheduled: %v", err)
		_ = q.save(context.WithoutCancel(ctx), &job)
	})
}

func (q *Queue) save(ctx context.Context, job *jobs.ExportReportJob) error {
	if q.store == nil {
		return nil
	}
	return q.store.SaveJob(ctx, job)
}

// Stop closes the queue and waits for in-flight jobs, or for ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
