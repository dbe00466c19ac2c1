// Package ttlcache is a small mutex-guarded map with per-entry expiry and an
// optional entry cap. Entries past their deadline are never returned.
package ttlcache

import (
	"strings"
	"sync"
	"time"
)

type item[V any] struct {
	value    V
	storedAt time.Time
	expires  time.Time
}

type Cache[V any] struct {
	mu         sync.RWMutex
	items      map[string]item[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type Option[V any] func(*Cache[V])

// WithMaxEntries evicts the oldest entry when a new key would exceed n.
func WithMaxEntries[V any](n int) Option[V] {
	return func(c *Cache[V]) {
		c.maxEntries = n
	}
}

func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

func New[V any](ttl time.Duration, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		items: make(map[string]item[V]),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(it.expires) {
		var zero V
		return zero, false
	}
	return it.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.items[key] = item[V]{value: value, storedAt: now, expires: now.Add(c.ttl)}
}

// Update replaces the value of a live entry without extending its deadline.
func (c *Cache[V]) Update(key string, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || !c.now().Before(it.expires) {
		return false
	}
	it.value = fn(it.value)
	c.items[key] = it
	return true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix drops every key starting with prefix and reports how many.
func (c *Cache[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Keys lists live keys with prefix.
func (c *Cache[V]) Keys(prefix string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	var keys []string
	for k, it := range c.items {
		if strings.HasPrefix(k, prefix) && now.Before(it.expires) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Sweep removes expired entries and reports how many were dropped.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, it := range c.items {
		if !now.Before(it.expires) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]item[V])
	c.mu.Unlock()
}

// Snapshot captures the entries under prefix so they can be put back with
// Restore. An empty prefix captures everything.
type Snapshot[V any] struct {
	prefix string
	items  map[string]item[V]
}

func (c *Cache[V]) Snapshot(prefix string) Snapshot[V] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make(map[string]item[V])
	for k, it := range c.items {
		if strings.HasPrefix(k, prefix) {
			items[k] = it
		}
	}
	return Snapshot[V]{prefix: prefix, items: items}
}

// Restore replaces the entries under the snapshot's prefix with the captured
// ones. Keys outside the prefix are left alone.
func (c *Cache[V]) Restore(s Snapshot[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.items {
		if strings.HasPrefix(k, s.prefix) {
			delete(c.items, k)
		}
	}
	for k, it := range s.items {
		c.items[k] = it
	}
}

func (c *Cache[V]) evictLocked(now time.Time) {
	oldestKey := ""
	var oldest time.Time
	for k, it := range c.items {
		if !now.Before(it.expires) {
			delete(c.items, k)
			return
		}
		if oldestKey == "" || it.storedAt.Before(oldest) {
			oldestKey, oldest = k, it.storedAt
		}
	}
	delete(c.items, oldestKey)
}
