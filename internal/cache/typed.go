package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Typed is a JSON-encoded view of a Store for values of type T.
// A Typed must not be copied after first use.
type Typed[T any] struct {
	store *Store
	group singleflight.Group
}

// NewTyped returns a typed view over s.
func NewTyped[T any](s *Store) *Typed[T] {
	return &Typed[T]{store: s}
}

// Store returns the underlying store.
func (c *Typed[T]) Store() *Store {
	return c.store
}

// Get returns the value stored under key. A payload that does not decode
// into T is a miss.
func (c *Typed[T]) Get(key string) (T, bool) {
	var v T
	raw, ok := c.store.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		c.store.log.Debug("cache payload decode failed", zap.String("key", key), zap.Error(err))
		var zero T
		return zero, false
	}
	return v, true
}

// Set stores v under key for ttl. Encoding failures are logged and ignored.
func (c *Typed[T]) Set(key string, v T, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		c.store.log.Warn("cache payload encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.store.Set(key, data, ttl)
}

// GetOrLoad returns the cached value for key, or calls load, stores its
// result for ttl and returns it. Concurrent misses for the same key share a
// single load. Errors from load are returned unchanged and nothing is cached.
func (c *Typed[T]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}
