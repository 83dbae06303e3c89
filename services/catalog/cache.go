package catalog

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_cache_hits_total"})
	cacheMiss = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_cache_miss_total"})
)

// activeCache holds the active task catalog for a short TTL. Staleness is
// tolerated: a task edited mid-visit may or may not apply to in-flight
// visitors. Refills are deduplicated with singleflight.
type activeCache struct {
	mu        sync.RWMutex
	tasks     []Task
	updatedAt time.Time
	ttl       time.Duration
	group     singleflight.Group
}

func newActiveCache(ttl time.Duration) *activeCache {
	return &activeCache{ttl: ttl}
}

func (c *activeCache) Get() ([]Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tasks == nil || (c.ttl > 0 && time.Since(c.updatedAt) > c.ttl) {
		cacheMiss.Inc()
		return nil, false
	}
	cacheHits.Inc()
	return c.tasks, true
}

func (c *activeCache) Set(tasks []Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = tasks
	c.updatedAt = time.Now()
}

func (c *activeCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = nil
}

// Fill loads through the cache, collapsing concurrent refills into one call.
func (c *activeCache) Fill(load func() ([]Task, error)) ([]Task, error) {
	if tasks, ok := c.Get(); ok {
		return tasks, nil
	}

	v, err, _ := c.group.Do("active", func() (any, error) {
		if tasks, ok := c.Get(); ok {
			return tasks, nil
		}
		tasks, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(tasks)
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Task), nil
}
