package usecases

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// ResultCache is a bounded in-process LRU of search responses keyed by
// query fingerprint. Entries expire after ttl as measured by the injected clock.
type ResultCache struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	now       func() time.Time
	items     map[string]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key     string
	resp    domain.SearchResponse
	expires time.Time
}

// NewResultCache creates a cache holding at most capacity responses.
// A capacity or ttl <= 0 disables caching. now may be nil.
func NewResultCache(capacity int, ttl time.Duration, now func() time.Time) *ResultCache {
	if now == nil {
		now = time.Now
	}
	return &ResultCache{
		capacity:  capacity,
		ttl:       ttl,
		now:       now,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

func (c *ResultCache) enabled() bool {
	return c != nil && c.capacity > 0 && c.ttl > 0
}

// Get returns a copy of the cached response for key.
func (c *ResultCache) Get(key string) (*domain.SearchResponse, bool) {
	if !c.enabled() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	ent := el.Value.(*cacheEntry)
	if !c.now().Before(ent.expires) {
		c.removeElement(el)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.evictList.MoveToFront(el)
	return cloneResponse(&ent.resp), true
}

// Set stores a copy of resp under key, evicting the least recently used
// entries beyond capacity.
func (c *ResultCache) Set(key string, resp *domain.SearchResponse) {
	if !c.enabled() || resp == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*cacheEntry)
		ent.resp = *cloneResponse(resp)
		ent.expires = expires
		c.evictList.MoveToFront(el)
		return
	}

	el := c.evictList.PushFront(&cacheEntry{key: key, resp: *cloneResponse(resp), expires: expires})
	c.items[key] = el
	for c.evictList.Len() > c.capacity {
		c.removeElement(c.evictList.Back())
	}
}

// Len returns the number of live and not yet collected entries.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns hit and miss counts.
func (c *ResultCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	delete(c.items, el.Value.(*cacheEntry).key)
}

func cloneResponse(r *domain.SearchResponse) *domain.SearchResponse {
	out := *r
	out.Results = append([]domain.RankedResult(nil), r.Results...)
	if out.Results == nil {
		out.Results = []domain.RankedResult{}
	}
	return &out
}
