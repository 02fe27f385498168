package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/intake"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("queue is shutting down")

// Submitter is the part of intake the queue drives.
type Submitter interface {
	SubmitPath(ctx context.Context, path string, opts intake.BatchOptions) intake.FileResult
}

// ProcessorQueue submits queued files on a fixed pool of workers.
type ProcessorQueue struct {
	sub     Submitter
	opts    intake.BatchOptions
	logger  *slog.Logger
	workers int
	timeout time.Duration
	done    func(intake.FileResult)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOptions sets the intake options applied to every job. Job.Overwrite is OR-ed in.
func WithOptions(o intake.BatchOptions) Option {
	return func(q *ProcessorQueue) { q.opts = o }
}

// WithResultHook is called from the worker goroutine after each job.
func WithResultHook(fn func(intake.FileResult)) Option {
	return func(q *ProcessorQueue) { q.done = fn }
}

func NewProcessorQueue(sub Submitter, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		sub:     sub,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	opts := q.opts
	opts.Overwrite = opts.Overwrite || job.Overwrite
	fr := q.sub.SubmitPath(ctx, job.Path, opts)

	logger := q.logger.With("worker_id", workerID, "path", job.Path, "status", fr.Status,
		"queued_ms", time.Since(job.SubmittedAt).Milliseconds())
	if fr.Err != "" {
		logger.Error("queue.job.failed", "error", fr.Err)
	} else {
		logger.Info("queue.job.done", "certificate_number", fr.CertificateNumber)
	}
	if q.done != nil {
		q.done(fr)
	}
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "path", job.Path, "overwrite", job.Overwrite)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

// Feed enqueues every path from paths until it closes or ctx is done.
func (q *ProcessorQueue) Feed(ctx context.Context, paths <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-paths:
			if !ok {
				return
			}
			if err := q.Enqueue(ctx, Job{Path: p}); err != nil {
				return
			}
		}
	}
}

var _ Queue = (*ProcessorQueue)(nil)
