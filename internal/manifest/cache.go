package manifest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nao1215/siteicons/internal/model"
)

// Cache coalesces and remembers manifest loads by key.
type Cache interface {
	// Do returns the result for key, calling fn at most once for concurrent
	// callers. fn receives a context that is not cancelled when ctx is.
	Do(ctx context.Context, key string, fn func(context.Context) ([]model.Icon, error)) ([]model.Icon, error)
}

type cached struct {
	icons []model.Icon
	err   error
}

// MemoCache is a single-flight cache that keeps every completed result,
// success or failure, until Clear is called. Results caused by context
// cancellation are not kept.
type MemoCache struct {
	group   singleflight.Group
	mu      sync.RWMutex
	results map[string]cached
}

// NewMemoCache returns an empty MemoCache.
func NewMemoCache() *MemoCache {
	return &MemoCache{results: make(map[string]cached)}
}

// Do implements Cache.
func (c *MemoCache) Do(ctx context.Context, key string, fn func(context.Context) ([]model.Icon, error)) ([]model.Icon, error) {
	if r, ok := c.lookup(key); ok {
		return slices.Clone(r.icons), r.err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if r, ok := c.lookup(key); ok {
			return r.icons, r.err
		}
		icons, err := fn(context.WithoutCancel(ctx))
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			c.mu.Lock()
			c.results[key] = cached{icons: icons, err: err}
			c.mu.Unlock()
		}
		return icons, err
	})

	select {
	case res := <-ch:
		icons, _ := res.Val.([]model.Icon) //nolint:errcheck // Val is always []model.Icon
		return slices.Clone(icons), res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *MemoCache) lookup(key string) (cached, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[key]
	return r, ok
}

// Len returns the number of remembered results.
func (c *MemoCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// Clear forgets every remembered result.
func (c *MemoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = make(map[string]cached)
}
