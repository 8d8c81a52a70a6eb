package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ttlCache memoises loads per key for ttl (plus up to 10% jitter). Concurrent misses
// for one key share a single load.
type ttlCache[V any] struct {
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu      sync.RWMutex
	rnd     *rand.Rand
	entries map[string]cacheEntry[V]
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func newTTLCache[V any](ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]cacheEntry[V]),
	}
}

func (c *ttlCache[V]) lookup(key string, now time.Time) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !entry.expiresAt.After(now) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) get(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.lookup(key, c.clock()); ok {
		return v, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		if v, ok := c.lookup(key, now); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.put(key, v, now)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

func (c *ttlCache[V]) put(key string, v V, now time.Time) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: v, expiresAt: now.Add(c.ttlWithJitter())}
	c.mu.Unlock()
}

func (c *ttlCache[V]) invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// ttlWithJitter must be called with mu held for writing.
func (c *ttlCache[V]) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
