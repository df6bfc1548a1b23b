package async

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/extract"
	"github.com/joseph-ayodele/docinsight/internal/ingest"
	"github.com/joseph-ayodele/docinsight/internal/pipeline"
)

type echoAnalyzer struct {
	active, peak atomic.Int32
	delay        time.Duration
}

func (e *echoAnalyzer) ProcessBytes(ctx context.Context, filename string, ct constants.ContentType, r io.Reader) (pipeline.Result, error) {
	n := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return pipeline.Result{}, err
	}
	select {
	case <-time.After(e.delay):
	case <-ctx.Done():
		return pipeline.Result{}, ctx.Err()
	}
	if string(b) == "fail" {
		return pipeline.Result{}, errors.New("boom")
	}
	return pipeline.Result{Filename: filename, ContentType: ct, Extraction: extract.Result{Text: string(b)}}, nil
}

func source(t *testing.T, dir, name, content string) ingest.Source {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return ingest.Source{Path: path, ContentType: constants.ContentTypePDF, Size: int64(len(content))}
}

func TestProcessorQueue_ProcessesAllJobs(t *testing.T) {
	dir := t.TempDir()
	a := &echoAnalyzer{delay: 10 * time.Millisecond}

	var mu sync.Mutex
	var outcomes []Outcome
	q := NewProcessorQueue(a, nil, WithWorkers(3), WithQueueSize(2), WithOutcome(func(o Outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}))

	for i, c := range []string{"one", "two", "fail", "four", "five", "six"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Source: source(t, dir, string(rune('a'+i))+".pdf", c)}))
	}
	q.Shutdown(context.Background())

	require.Len(t, outcomes, 6)
	var failed int
	for _, o := range outcomes {
		assert.False(t, o.Job.SubmittedAt.IsZero())
		if o.Err != nil {
			failed++
			continue
		}
		assert.Equal(t, filepath.Base(o.Job.Source.Path), o.Result.Filename)
	}
	assert.Equal(t, 1, failed)
	assert.LessOrEqual(t, a.peak.Load(), int32(3))
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&echoAnalyzer{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestProcessorQueue_PerJobTimeout(t *testing.T) {
	dir := t.TempDir()
	var got Outcome
	q := NewProcessorQueue(&echoAnalyzer{delay: time.Minute}, nil,
		WithWorkers(1),
		WithProcessTimeout(20*time.Millisecond),
		WithOutcome(func(o Outcome) { got = o }),
	)
	require.NoError(t, q.Enqueue(context.Background(), Job{Source: source(t, dir, "slow.pdf", "x")}))
	q.Shutdown(context.Background())

	assert.ErrorIs(t, got.Err, context.DeadlineExceeded)
}

func TestProcessorQueue_MissingFile(t *testing.T) {
	var got Outcome
	q := NewProcessorQueue(&echoAnalyzer{}, nil, WithOutcome(func(o Outcome) { got = o }))
	require.NoError(t, q.Enqueue(context.Background(), Job{Source: ingest.Source{Path: filepath.Join(t.TempDir(), "gone.pdf")}}))
	q.Shutdown(context.Background())

	assert.ErrorIs(t, got.Err, os.ErrNotExist)
}
