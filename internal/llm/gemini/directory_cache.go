package gemini

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/minio/highwayhash"
	"golang.org/x/sync/singleflight"

	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/llm"
)

// DirectoryCache memoizes a model directory per credential for a short TTL.
// Credentials are never stored; entries are keyed by a keyed hash of them.
// A zero TTL disables caching and every call reaches the directory.
type DirectoryCache struct {
	next   llm.ModelDirectory
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	hashKey []byte
	group   singleflight.Group

	mu      sync.Mutex
	entries map[uint64]cacheEntry
}

type cacheEntry struct {
	models  []llm.ModelDescriptor
	expires time.Time
}

func NewDirectoryCache(next llm.ModelDirectory, ttl time.Duration, logger *slog.Logger) *DirectoryCache {
	if logger == nil {
		logger = slog.Default()
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return &DirectoryCache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		hashKey: key,
		entries: make(map[uint64]cacheEntry),
	}
}

func (c *DirectoryCache) fingerprint(credential string) uint64 {
	return highwayhash.Sum64([]byte(credential), c.hashKey)
}

func (c *DirectoryCache) ListCapableModels(ctx context.Context, credential string) ([]llm.ModelDescriptor, error) {
	if c.ttl <= 0 {
		return c.next.ListCapableModels(ctx, credential)
	}

	fp := c.fingerprint(credential)
	c.mu.Lock()
	e, ok := c.entries[fp]
	c.mu.Unlock()
	if ok && c.now().Before(e.expires) {
		c.logger.Debug("llm.models.cache_hit", "models", len(e.models))
		return cloneModels(e.models), nil
	}

	// concurrent misses for one credential share a single directory call,
	// which must not fail for everyone when the first caller goes away
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatUint(fp, 16), func() (any, error) {
		models, err := c.next.ListCapableModels(shared, credential)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[fp] = cacheEntry{models: models, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return models, nil
	})
	select {
	case <-ctx.Done():
		return nil, common.NewAppError(common.CodeProviderUnavailable, "list models", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return cloneModels(r.Val.([]llm.ModelDescriptor)), nil
	}
}

// Invalidate drops the cached directory for credential.
func (c *DirectoryCache) Invalidate(credential string) {
	fp := c.fingerprint(credential)
	c.mu.Lock()
	_, had := c.entries[fp]
	delete(c.entries, fp)
	c.mu.Unlock()
	if had {
		c.logger.Info("llm.models.cache_invalidated")
	}
}

func cloneModels(in []llm.ModelDescriptor) []llm.ModelDescriptor {
	out := make([]llm.ModelDescriptor, len(in))
	copy(out, in)
	return out
}
