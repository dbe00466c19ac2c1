package adminclient

import (
	"fmt"
	"net/url"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/ttlcache"
)

const (
	DefaultStaleTime = 5 * time.Minute

	ProductsPrefix = "products|"
)

// Cache holds decoded read results keyed by resource|filter|pagination. One
// Cache is meant to be shared by every Client in the process.
type Cache struct {
	entries *ttlcache.Cache[any]
}

func NewCache(staleTime time.Duration, now func() time.Time) *Cache {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{entries: ttlcache.New[any](staleTime, ttlcache.WithClock[any](now))}
}

func (c *Cache) Get(key string) (any, bool) {
	return c.entries.Get(key)
}

func (c *Cache) Set(key string, value any) {
	c.entries.Set(key, value)
}

func (c *Cache) Invalidate(key string) {
	c.entries.Delete(key)
}

func (c *Cache) InvalidatePrefix(prefix string) int {
	return c.entries.DeletePrefix(prefix)
}

func (c *Cache) Keys(prefix string) []string {
	return c.entries.Keys(prefix)
}

func (c *Cache) Snapshot(prefix string) ttlcache.Snapshot[any] {
	return c.entries.Snapshot(prefix)
}

func (c *Cache) Restore(s ttlcache.Snapshot[any]) {
	c.entries.Restore(s)
}

func (c *Cache) Clear() {
	c.entries.Clear()
}

func (c *Cache) Sweep() int {
	return c.entries.Sweep()
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

// update rewrites live entries under prefix whose value has type T.
func update[T any](c *Cache, prefix string, fn func(T) T) {
	for _, key := range c.entries.Keys(prefix) {
		c.entries.Update(key, func(v any) any {
			typed, ok := v.(T)
			if !ok {
				return v
			}
			return fn(typed)
		})
	}
}

func get[T any](c *Cache, key string) (T, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

func productListKey(query url.Values) string {
	return fmt.Sprintf("%slist|%s", ProductsPrefix, query.Encode())
}

func productKey(id string) string {
	return fmt.Sprintf("%sdetail|%s", ProductsPrefix, id)
}
