package preload

import (
	"sync"
	"sync/atomic"
)

// DefaultPageCapacity bounds the number of locally cached rendered pages.
const DefaultPageCapacity = 48

// PageKey identifies one rendered page in the local cache.
type PageKey struct {
	BookID string
	Scale  float64
	Page   int
}

// Page is a locally cached rendered page.
type Page struct {
	BookID string
	Scale  float64
	Num    int
	Data   []byte
}

// PageCache is the reading surface's local cache of rendered pages.
//
// Entries are never invalidated eagerly: pages for other books or scales
// simply age out as new entries push them past capacity. Every insert
// bumps a version counter so consumers know to re-read the cache.
type PageCache struct {
	mu       sync.Mutex
	pages    map[PageKey]*Page
	order    []PageKey // insertion order, for capacity trimming
	capacity int

	version  atomic.Int64
	onUpdate func()
}

// NewPageCache creates a page cache with the given capacity.
// A capacity <= 0 uses DefaultPageCapacity.
func NewPageCache(capacity int) *PageCache {
	if capacity <= 0 {
		capacity = DefaultPageCapacity
	}
	return &PageCache{
		pages:    make(map[PageKey]*Page),
		capacity: capacity,
	}
}

// OnUpdate registers a callback invoked after every insert.
// The reading surface uses it to schedule a repaint.
func (c *PageCache) OnUpdate(fn func()) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

// Version returns the current cache version. It increases on every insert.
func (c *PageCache) Version() int64 {
	return c.version.Load()
}

// Has reports whether the page is cached.
func (c *PageCache) Has(key PageKey) bool {
	c.mu.Lock()
	_, ok := c.pages[key]
	c.mu.Unlock()
	return ok
}

// Get returns the cached page, or nil if absent.
func (c *PageCache) Get(key PageKey) *Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pages[key]
}

// Put inserts a page, trimming the oldest inserted entries over capacity,
// then bumps the version and notifies the update callback.
func (c *PageCache) Put(p *Page) {
	key := PageKey{BookID: p.BookID, Scale: p.Scale, Page: p.Num}

	c.mu.Lock()
	if _, ok := c.pages[key]; !ok {
		c.order = append(c.order, key)
	}
	c.pages[key] = p
	for len(c.pages) > c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.pages, oldest)
	}
	fn := c.onUpdate
	c.mu.Unlock()

	c.version.Add(1)
	if fn != nil {
		fn()
	}
}

// Len returns the number of cached pages.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}
