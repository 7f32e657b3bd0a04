package intent

import (
	"container/list"
	"sync"
	"time"
)

// decisionCache is a bounded LRU map with per-entry TTL, keyed by normalized
// query text. Expiry is checked lazily on read; capacity overflow evicts
// oldest-first. All access runs under one lock because concurrent requests
// share the cache.
type decisionCache struct {
	capacity int
	ttl      time.Duration

	mu    sync.Mutex
	order *list.List // front = most recently used
	items map[string]*list.Element
	now   func() time.Time
}

type cacheEntry struct {
	key      string
	decision Decision
	storedAt time.Time
}

func newDecisionCache(capacity int, ttl time.Duration) *decisionCache {
	if capacity < 1 {
		capacity = 1
	}
	return &decisionCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (c *decisionCache) get(key string) (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return Decision{}, false
	}
	ent := el.Value.(*cacheEntry)
	if c.ttl > 0 && c.now().Sub(ent.storedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.items, key)
		return Decision{}, false
	}
	c.order.MoveToFront(el)
	return ent.decision, true
}

func (c *decisionCache) put(key string, d Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*cacheEntry)
		ent.decision = d
		ent.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}
	for len(c.items) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
	el := c.order.PushFront(&cacheEntry{key: key, decision: d, storedAt: c.now()})
	c.items[key] = el
}
