package curriculum

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	subject string
	grade   int
}

// TopicCache memoizes ranked topic suggestions per (subject, grade).
// Entries never expire; Reset drops them all. Safe for concurrent use.
type TopicCache struct {
	provider Provider
	logger   *zap.Logger
	group    singleflight.Group

	mu      sync.RWMutex
	entries map[cacheKey][]string
	gen     uint64
}

// NewTopicCache creates a cache in front of provider.
func NewTopicCache(provider Provider, logger *zap.Logger) *TopicCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicCache{
		provider: provider,
		logger:   logger,
		entries:  make(map[cacheKey][]string),
	}
}

// GetTopics returns the ranked suggestions for a subject and grade.
// Concurrent misses for the same key share a single provider call.
func (c *TopicCache) GetTopics(ctx context.Context, subjectID string, grade int) ([]string, error) {
	key := cacheKey{subject: strings.ToUpper(subjectID), grade: grade}

	c.mu.RLock()
	topics, ok := c.entries[key]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return slices.Clone(topics), nil
	}

	flight := fmt.Sprintf("%d/%s/%d", gen, key.subject, key.grade)
	ch := c.group.DoChan(flight, func() (any, error) {
		return c.compute(context.WithoutCancel(ctx), key, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]string)), nil
	}
}

func (c *TopicCache) compute(ctx context.Context, key cacheKey, gen uint64) ([]string, error) {
	all, err := c.provider.TopicsFor(ctx, key.subject, key.grade)
	if err != nil {
		return nil, fmt.Errorf("topics for %s grade %d: %w", key.subject, key.grade, err)
	}
	ranked := Rank(all, key.grade)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		// A reset happened while computing; don't store a stale result.
		c.logger.Debug("discarding topic suggestions computed before reset",
			zap.String("subject", key.subject), zap.Int("grade", key.grade))
		return ranked, nil
	}
	c.entries[key] = ranked
	return ranked, nil
}

// Reset drops every cached entry.
func (c *TopicCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[cacheKey][]string)
	c.gen++
	c.mu.Unlock()
	c.logger.Debug("topic cache reset")
}

// Len returns the number of cached entries.
func (c *TopicCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
