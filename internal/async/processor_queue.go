package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
	"github.com/joseph-ayodele/papercast-grobid/internal/extract"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// ResultFunc observes every finished job. It runs on the worker goroutine.
type ResultFunc func(job Job, prod *entity.Production, err error)

type ProcessorQueue struct {
	proc     extract.Component
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult ResultFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// quit is closed before mu is taken for writing, so senders blocked on a
	// full buffer give up their read lock and Shutdown can close ch.
	quit     chan struct{}
	quitOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*ProcessorQueue)(nil)

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
func WithResultFunc(fn ResultFunc) Option {
	return func(q *ProcessorQueue) { q.onResult = fn }
}

// NewProcessorQueue starts the workers. Each job gets a fresh Production.
func NewProcessorQueue(proc extract.Component, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		quit:    make(chan struct{}),
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
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := common.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	prod, err := q.proc.Process(ctx, entity.NewProduction(job.PDFPath), job.Mode)
	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "path", job.PDFPath, "mode", job.Mode, "error", err)
	} else {
		q.logger.Info("processed file successfully", "worker_id", workerID, "path", job.PDFPath,
			"mode", job.Mode, "waited_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
	if q.onResult != nil {
		q.onResult(job, prod, err)
	}
}

// Enqueue blocks while the buffer is full until a worker frees a slot, ctx
// ends, or Shutdown starts.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.PDFPath)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued file for processing", "path", job.PDFPath, "mode", job.Mode, "trace_id", job.TraceID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.PDFPath)
	select {
	case q.ch <- job:
		q.logger.Info("queued file for processing", "path", job.PDFPath, "mode", job.Mode, "trace_id", job.TraceID)
		return nil
	case <-q.quit:
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.PDFPath)
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.quitOnce.Do(func() { close(q.quit) })
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
