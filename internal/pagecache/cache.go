// Package pagecache caches rendered page images server-side.
//
// Entries are keyed by (blob name, page, scale) and bounded by both
// capacity and a time-to-live. Eviction discards the entry with the oldest
// last access. Renders for the same key are collapsed through singleflight
// so concurrent misses produce one render, not two.
package pagecache

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCapacity is the maximum number of resident page images.
	DefaultCapacity = 12

	// DefaultTTL is how long an entry stays valid without being accessed.
	DefaultTTL = 5 * time.Minute
)

// Key identifies one rendered page image.
type Key struct {
	BlobName string
	Page     int
	Scale    float64
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%d|%g", k.BlobName, k.Page, k.Scale)
}

// RenderFunc produces the image bytes for a key on cache miss.
type RenderFunc func() ([]byte, error)

type entry struct {
	buf            []byte
	createdAt      time.Time
	lastAccessedAt time.Time
}

// Cache is a capacity- and TTL-bounded page image cache.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry

	capacity int
	ttl      time.Duration

	group singleflight.Group

	// now is swappable for TTL tests.
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity overrides the entry capacity.
func WithCapacity(n int) Option {
	return func(c *Cache) { c.capacity = n }
}

// WithTTL overrides the entry time-to-live.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache with the default capacity and TTL.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[Key]*entry),
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached image for key, rendering it via render on miss.
// A hit refreshes the entry's last access time. An expired entry is
// treated as a miss and re-rendered.
func (c *Cache) Get(key Key, render RenderFunc) ([]byte, error) {
	if buf, ok := c.lookup(key); ok {
		return buf, nil
	}

	// Collapse concurrent renders of the same key. The winner's result is
	// shared with every waiter.
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// A waiter may arrive after the winner already populated the
		// cache; re-check before rendering.
		if buf, ok := c.lookup(key); ok {
			return buf, nil
		}
		buf, err := render()
		if err != nil {
			return nil, err
		}
		c.insert(key, buf)
		return buf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// lookup returns a fresh entry and refreshes its access time.
func (c *Cache) lookup(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.now()
	if now.Sub(e.lastAccessedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	e.lastAccessedAt = now
	return e.buf, true
}

// insert stores a new entry and evicts the least recently accessed entry
// if the cache is over capacity.
func (c *Cache) insert(key Key, buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &entry{buf: buf, createdAt: now, lastAccessedAt: now}

	for len(c.entries) > c.capacity {
		var oldest Key
		var oldestAt time.Time
		first := true
		for k, e := range c.entries {
			if first || e.lastAccessedAt.Before(oldestAt) {
				oldest, oldestAt, first = k, e.lastAccessedAt, false
			}
		}
		delete(c.entries, oldest)
	}
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether key is resident, without refreshing it.
func (c *Cache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Purge drops all entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
}
