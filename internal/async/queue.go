package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/docinsight/internal/ingest"
	"github.com/joseph-ayodele/docinsight/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one local file waiting to be analyzed.
type Job struct {
	Source      ingest.Source
	SubmittedAt time.Time
	TraceID     string
}

// Outcome is delivered once per job, after processing finishes.
type Outcome struct {
	Job     Job
	Result  pipeline.Result
	Err     error
	Elapsed time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
