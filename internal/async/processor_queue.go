package async

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/pipeline"
)

// Analyzer is the processor entry point the workers call.
type Analyzer interface {
	ProcessBytes(ctx context.Context, filename string, ct constants.ContentType, r io.Reader) (pipeline.Result, error)
}

// ProcessorQueue runs jobs on a fixed pool of workers, each job under its own timeout.
type ProcessorQueue struct {
	proc    Analyzer
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(Outcome)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
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

// WithOutcome registers a callback run after every job. It is called from
// worker goroutines concurrently.
func WithOutcome(fn func(Outcome)) Option {
	return func(q *ProcessorQueue) {
		q.onDone = fn
	}
}

func NewProcessorQueue(proc Analyzer, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		onDone:  func(Outcome) {},
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
					out := q.run(job)
					if out.Err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "path", job.Source.Path, "code", common.CodeOf(out.Err), "error", out.Err)
					} else {
						q.logger.Info("processed file successfully",
							"worker_id", workerID,
							"path", job.Source.Path,
							"enriched", out.Result.Enrichment != nil,
							"elapsed_ms", out.Elapsed.Milliseconds(),
						)
					}
					q.onDone(out)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(job Job) (out Outcome) {
	out.Job = job
	start := time.Now()
	defer func() { out.Elapsed = time.Since(start) }()

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	f, err := os.Open(job.Source.Path)
	if err != nil {
		out.Err = fmt.Errorf("open %s: %w", job.Source.Path, err)
		return out
	}
	defer f.Close()

	out.Result, out.Err = q.proc.ProcessBytes(ctx, filepath.Base(job.Source.Path), job.Source.ContentType, f)
	return out
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Source.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "path", job.Source.Path)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Source.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain or ctx to end.
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
