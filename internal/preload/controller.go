// Package preload drives the reading surface's page prefetching.
//
// A Controller predicts which pages will be needed next from the current
// page, scale, and viewport, fetches them with bounded concurrency, and
// feeds a local bounded cache of rendered pages plus a short record of
// recently preloaded windows.
package preload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is how many pages ahead of the current page one
	// preload batch reaches.
	DefaultBatchSize = 8

	// DefaultSafetyOffset is how many pages behind the current page are
	// kept warm for backwards navigation.
	DefaultSafetyOffset = 2

	// DefaultConcurrency bounds simultaneous page fetches in one batch.
	DefaultConcurrency = 2
)

// State is the controller's preload state.
type State int

const (
	StateIdle State = iota
	StatePreloading
	StateAborting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreloading:
		return "preloading"
	case StateAborting:
		return "aborting"
	}
	return "unknown"
}

// Fetcher retrieves one rendered page from the server.
type Fetcher interface {
	FetchPage(ctx context.Context, blobName string, page int, scale float64) ([]byte, error)
}

// DocRef identifies the document a preload targets.
type DocRef struct {
	// ID keys the local caches (book identity).
	ID string

	// BlobName is the canonical blob name used for fetching.
	BlobName string

	// TotalPages clamps preload windows.
	TotalPages int
}

// Config configures a Controller.
type Config struct {
	Fetcher      Fetcher
	Cache        *PageCache
	Ranges       *RangeRecords
	BatchSize    int
	SafetyOffset int
	Concurrency  int
	Logger       *slog.Logger
}

// Controller runs preload batches. At most one batch is in flight per
// controller; starting a new batch aborts the previous one cooperatively.
type Controller struct {
	fetcher      Fetcher
	cache        *PageCache
	ranges       *RangeRecords
	batchSize    int
	safetyOffset int
	concurrency  int
	log          *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a preload controller.
func NewController(cfg Config) *Controller {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.SafetyOffset <= 0 {
		cfg.SafetyOffset = DefaultSafetyOffset
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Cache == nil {
		cfg.Cache = NewPageCache(0)
	}
	if cfg.Ranges == nil {
		cfg.Ranges = NewRangeRecords()
	}
	return &Controller{
		fetcher:      cfg.Fetcher,
		cache:        cfg.Cache,
		ranges:       cfg.Ranges,
		batchSize:    cfg.BatchSize,
		safetyOffset: cfg.SafetyOffset,
		concurrency:  cfg.Concurrency,
		log:          cfg.Logger,
		state:        StateIdle,
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cache returns the local page cache.
func (c *Controller) Cache() *PageCache { return c.cache }

// Ranges returns the preloaded-window records.
func (c *Controller) Ranges() *RangeRecords { return c.ranges }

// window computes the target page window around the current page.
func (c *Controller) window(totalPages, currentPage int) (int, int) {
	start := currentPage - c.safetyOffset
	if start < 1 {
		start = 1
	}
	end := currentPage + c.batchSize - 1
	if end > totalPages {
		end = totalPages
	}
	return start, end
}

// Preload fetches the pages around currentPage that are not yet cached.
//
// If a recorded window already covers the target window, nothing happens.
// If a previous batch is still in flight it is aborted first: its context
// is cancelled and Preload waits for it to wind down before starting.
// Individual fetch failures are logged and swallowed; a window with
// failures is not recorded, so the same window is retried on the next
// trigger.
func (c *Controller) Preload(ctx context.Context, doc DocRef, currentPage int, scale float64) error {
	if doc.TotalPages < 1 || currentPage < 1 || currentPage > doc.TotalPages {
		return nil
	}
	start, end := c.window(doc.TotalPages, currentPage)
	if c.ranges.Covers(doc.ID, scale, start, end) {
		return nil
	}

	c.mu.Lock()
	for c.cancel != nil {
		// Abort the in-flight batch and wait for it to finish winding
		// down before claiming the controller.
		c.state = StateAborting
		c.cancel()
		prev := c.done
		c.mu.Unlock()
		<-prev
		c.mu.Lock()
	}
	batchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.state = StatePreloading
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		if c.done == done {
			c.cancel = nil
			c.done = nil
			c.state = StateIdle
		}
		c.mu.Unlock()
		close(done)
	}()

	var failed atomic.Bool
	eg := &errgroup.Group{}
	eg.SetLimit(c.concurrency)
	for page := start; page <= end; page++ {
		key := PageKey{BookID: doc.ID, Scale: scale, Page: page}
		if c.cache.Has(key) {
			continue
		}
		eg.Go(func() error {
			if err := batchCtx.Err(); err != nil {
				return err
			}
			data, err := c.fetcher.FetchPage(batchCtx, doc.BlobName, page, scale)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				c.log.Error("page preload failed", "book", doc.ID, "page", page, "error", err)
				failed.Store(true)
				return nil
			}
			c.cache.Put(&Page{BookID: doc.ID, Scale: scale, Num: page, Data: data})
			return nil
		})
	}
	err := eg.Wait()

	if err != nil || batchCtx.Err() != nil {
		// Aborted: discard the batch without recording the window.
		return nil
	}
	if failed.Load() {
		// Partial batch: leave the window unrecorded so it is retried.
		return nil
	}

	c.ranges.Add(doc.ID, scale, start, end)
	return nil
}

// EnsureVisible preloads when any currently visible page is absent from
// both the page cache and the recorded windows. Viewport jumps (direct
// page-number entry) can land outside the last preloaded window; this is
// the safety net for that case.
func (c *Controller) EnsureVisible(ctx context.Context, doc DocRef, visible []int, scale float64) error {
	for _, page := range visible {
		if page < 1 || page > doc.TotalPages {
			continue
		}
		if c.cache.Has(PageKey{BookID: doc.ID, Scale: scale, Page: page}) {
			continue
		}
		if c.ranges.Covers(doc.ID, scale, page, page) {
			continue
		}
		return c.Preload(ctx, doc, page, scale)
	}
	return nil
}
