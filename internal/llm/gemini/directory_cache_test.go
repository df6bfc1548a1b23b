package gemini

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/llm"
)

type countingDirectory struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (d *countingDirectory) ListCapableModels(_ context.Context, credential string) ([]llm.ModelDescriptor, error) {
	d.calls.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return nil, d.err
	}
	return []llm.ModelDescriptor{{Name: "models/gemini-pro-" + credential}}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestDirectoryCache_DisabledPassesThrough(t *testing.T) {
	dir := &countingDirectory{}
	cache := NewDirectoryCache(dir, 0, nil)

	for i := 0; i < 3; i++ {
		_, err := cache.ListCapableModels(context.Background(), "a")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, dir.calls.Load())
}

func TestDirectoryCache_HitExpireInvalidate(t *testing.T) {
	dir := &countingDirectory{}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := NewDirectoryCache(dir, time.Minute, nil)
	cache.now = clock.Now
	ctx := context.Background()

	got, err := cache.ListCapableModels(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "models/gemini-pro-a", got[0].Name)

	_, _ = cache.ListCapableModels(ctx, "a")
	assert.EqualValues(t, 1, dir.calls.Load(), "second call within TTL is served from cache")

	_, _ = cache.ListCapableModels(ctx, "b")
	assert.EqualValues(t, 2, dir.calls.Load(), "entries are per credential")

	clock.Advance(2 * time.Minute)
	_, _ = cache.ListCapableModels(ctx, "a")
	assert.EqualValues(t, 3, dir.calls.Load(), "expired entry is refreshed")

	cache.Invalidate("a")
	_, _ = cache.ListCapableModels(ctx, "a")
	assert.EqualValues(t, 4, dir.calls.Load(), "invalidated entry is refreshed")
}

func TestDirectoryCache_ErrorsAreNotCached(t *testing.T) {
	dir := &countingDirectory{err: common.NewAppError(common.CodeProviderUnavailable, "down", errors.New("dial"))}
	cache := NewDirectoryCache(dir, time.Minute, nil)

	for i := 0; i < 2; i++ {
		_, err := cache.ListCapableModels(context.Background(), "a")
		require.Error(t, err)
		assert.Equal(t, common.CodeProviderUnavailable, common.CodeOf(err))
	}
	assert.EqualValues(t, 2, dir.calls.Load())
}

func TestDirectoryCache_CallerCannotMutateEntry(t *testing.T) {
	cache := NewDirectoryCache(&countingDirectory{}, time.Minute, nil)

	got, err := cache.ListCapableModels(context.Background(), "a")
	require.NoError(t, err)
	got[0].Name = "tampered"

	again, err := cache.ListCapableModels(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "models/gemini-pro-a", again[0].Name)
}

func TestDirectoryCache_ConcurrentMissesShareOneCall(t *testing.T) {
	dir := &countingDirectory{delay: 50 * time.Millisecond}
	cache := NewDirectoryCache(dir, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.ListCapableModels(context.Background(), "same")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, dir.calls.Load(), int32(2))
}

// gatedDirectory blocks every call until release is closed or ctx ends.
type gatedDirectory struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *gatedDirectory) ListCapableModels(ctx context.Context, _ string) ([]llm.ModelDescriptor, error) {
	d.once.Do(func() { close(d.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.release:
	}
	return []llm.ModelDescriptor{{Name: "models/gemini-pro"}}, nil
}

func TestDirectoryCache_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	dir := &gatedDirectory{started: make(chan struct{}), release: make(chan struct{})}
	cache := NewDirectoryCache(dir, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.ListCapableModels(ctx, "same")
		firstErr <- err
	}()
	<-dir.started

	type result struct {
		models []llm.ModelDescriptor
		err    error
	}
	second := make(chan result, 1)
	go func() {
		m, err := cache.ListCapableModels(context.Background(), "same")
		second <- result{m, err}
	}()
	// let the second caller join the in-flight call
	time.Sleep(20 * time.Millisecond)

	cancel()
	err := <-firstErr
	assert.Equal(t, common.CodeProviderUnavailable, common.CodeOf(err))
	assert.ErrorIs(t, err, context.Canceled)

	close(dir.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, []llm.ModelDescriptor{{Name: "models/gemini-pro"}}, got.models)
}
