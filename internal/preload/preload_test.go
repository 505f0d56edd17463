package preload

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeFetcher records fetched pages and can fail or block on demand.
type fakeFetcher struct {
	mu      sync.Mutex
	fetched []int

	failPages map[int]bool

	// blockBelow makes fetches of pages below it hang until their context
	// is cancelled. Used to hold a batch in flight.
	blockBelow int
}

func (f *fakeFetcher) FetchPage(ctx context.Context, blobName string, page int, scale float64) ([]byte, error) {
	if page < f.blockBelow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPages[page] {
		return nil, fmt.Errorf("fetch of page %d failed", page)
	}
	f.fetched = append(f.fetched, page)
	return []byte(fmt.Sprintf("page-%d", page)), nil
}

func (f *fakeFetcher) pages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.fetched))
	copy(out, f.fetched)
	return out
}

func testController(f Fetcher) *Controller {
	return NewController(Config{Fetcher: f})
}

func TestController_PreloadWindow(t *testing.T) {
	tests := []struct {
		name        string
		totalPages  int
		currentPage int
		wantStart   int
		wantEnd     int
	}{
		{"mid document", 100, 10, 8, 17},
		{"clamped at start", 100, 1, 1, 8},
		{"near start keeps safety pages", 100, 2, 1, 9},
		{"clamped at end", 100, 98, 96, 100},
		{"short document", 5, 1, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{}
			c := testController(f)
			doc := DocRef{ID: "b1", BlobName: "book.pdf", TotalPages: tt.totalPages}

			if err := c.Preload(context.Background(), doc, tt.currentPage, 1.0); err != nil {
				t.Fatalf("Preload failed: %v", err)
			}

			want := map[int]bool{}
			for p := tt.wantStart; p <= tt.wantEnd; p++ {
				want[p] = true
			}
			got := f.pages()
			if len(got) != len(want) {
				t.Fatalf("fetched %d pages %v, want %d", len(got), got, len(want))
			}
			for _, p := range got {
				if !want[p] {
					t.Errorf("fetched unexpected page %d", p)
				}
			}

			// The whole window is recorded and cached.
			if !c.Ranges().Covers(doc.ID, 1.0, tt.wantStart, tt.wantEnd) {
				t.Error("window should be recorded after a clean batch")
			}
			for p := tt.wantStart; p <= tt.wantEnd; p++ {
				if !c.Cache().Has(PageKey{BookID: doc.ID, Scale: 1.0, Page: p}) {
					t.Errorf("page %d should be cached", p)
				}
			}
		})
	}
}

func TestController_SkipsCoveredWindow(t *testing.T) {
	f := &fakeFetcher{}
	c := testController(f)
	doc := DocRef{ID: "b1", BlobName: "book.pdf", TotalPages: 100}

	// A previously recorded wide window covers the new target entirely.
	c.Ranges().Add(doc.ID, 1.0, 40, 60)

	if err := c.Preload(context.Background(), doc, 45, 1.0); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	if len(f.pages()) != 0 {
		t.Errorf("covered window should fetch nothing, fetched %v", f.pages())
	}
}

func TestController_ScaleChangesAreNotCovered(t *testing.T) {
	f := &fakeFetcher{}
	c := testController(f)
	doc := DocRef{ID: "b1", BlobName: "book.pdf", TotalPages: 100}

	c.Ranges().Add(doc.ID, 1.0, 1, 100)

	// Same pages at a different scale must fetch.
	if err := c.Preload(context.Background(), doc, 10, 2.0); err != nil {
		t.Fatal(err)
	}
	if len(f.pages()) == 0 {
		t.Error("different scale should not be considered covered")
	}
}

func TestController_CachedPagesSkipped(t *testing.T) {
	f := &fakeFetcher{}
	c := testController(f)
	doc := DocRef{ID: "b1", BlobName: "book.pdf", TotalPages: 100}

	// Pre-cache part of the window.
	for p := 8; p <= 12; p++ {
		c.Cache().Put(&Page{BookID: doc.ID, Scale: 1.0, Num: p, Data: []byte("x")})
	}

	if err := c.Preload(context.Background(), doc, 10, 1.0); err != nil {
		t.Fatal(err)
	}
	for _, p := range f.pages() {
		if p >= 8 && p <= 12 {
			t.Errorf("page %d was already cached but was fetched", p)
		}
	}
}

func TestController_FailedBatchNotRecorded(t *testing.T) {
	f := &fakeFetcher{failPages: map[int]bool{10: true}}
	c := testController(f)
	doc := DocRef{ID: "b1", BlobName: "book.pdf", TotalPages: 100}

	if err := c.Preload(context.Background(), doc, 10, 1.0); err != nil {
		t.Fatalf("fetch failures should not surface as errors, got %v", err)
	}

	if c.Ranges().Covers(doc.ID, 1.0, 8, 17) {
		t.Error("window with failures must not be recorded")
	}
	// Successful siblings still landed in the cache.
	if !c.Cache().Has(PageKey{BookID: doc.ID, Scale: 1.0, Page: 9}) {
		t.Error("successful sibling fetch should be cached")
	}
	if c.Cache().Has(PageKey{BookID: doc.ID, Scale: 1.0, Page: 10}) {
		t.Error("failed page must not be cached")
	}
}

func TestController_AbortOnNewPreload(t *testing.T) {
	// Pages below 100 hang until cancelled, so the first batch (8-17)
	// stays in flight while the second (148-157) proceeds normally.
	f := &fakeFetcher{blockBelow: 100}
	c := testController(f)
	doc := DocRef{ID: "b1", BlobName: "book.pdf", TotalPages: 200}

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = c.Preload(context.Background(), doc, 10, 1.0)
	}()

	// Wait until the first batch is in flight.
	deadline := time.After(2 * time.Second)
	for c.State() != StatePreloading {
		select {
		case <-deadline:
			t.Fatal("first batch never started")
		case <-time.After(time.Millisecond):
		}
	}

	if err := c.Preload(context.Background(), doc, 150, 1.0); err != nil {
		t.Fatalf("second Preload failed: %v", err)
	}
	<-firstDone

	// The aborted batch must not have recorded its window; the new one did.
	if c.Ranges().Covers(doc.ID, 1.0, 8, 17) {
		t.Error("aborted batch should not record its window")
	}
	if !c.Ranges().Covers(doc.ID, 1.0, 148, 157) {
		t.Error("replacement batch should record its window")
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func TestController_InvalidInputsIgnored(t *testing.T) {
	f := &fakeFetcher{}
	c := testController(f)

	cases := []struct {
		name string
		doc  DocRef
		page int
	}{
		{"zero pages", DocRef{ID: "b", TotalPages: 0}, 1},
		{"page zero", DocRef{ID: "b", TotalPages: 10}, 0},
		{"page beyond total", DocRef{ID: "b", TotalPages: 10}, 11},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Preload(context.Background(), tt.doc, tt.page, 1.0); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(f.pages()) != 0 {
				t.Errorf("invalid input should fetch nothing, fetched %v", f.pages())
			}
		})
	}
}

func TestController_EnsureVisible(t *testing.T) {
	f := &fakeFetcher{}
	c := testController(f)
	doc := DocRef{ID: "b1", BlobName: "book.pdf", TotalPages: 100}

	t.Run("fetches for uncovered visible page", func(t *testing.T) {
		if err := c.EnsureVisible(context.Background(), doc, []int{50}, 1.0); err != nil {
			t.Fatal(err)
		}
		if !c.Cache().Has(PageKey{BookID: doc.ID, Scale: 1.0, Page: 50}) {
			t.Error("visible page should be cached after EnsureVisible")
		}
	})

	t.Run("no-op when visible pages cached", func(t *testing.T) {
		before := len(f.pages())
		if err := c.EnsureVisible(context.Background(), doc, []int{50, 51}, 1.0); err != nil {
			t.Fatal(err)
		}
		if len(f.pages()) != before {
			t.Error("covered visible pages should not trigger fetches")
		}
	})

	t.Run("ignores out-of-bounds pages", func(t *testing.T) {
		before := len(f.pages())
		if err := c.EnsureVisible(context.Background(), doc, []int{0, 101}, 1.0); err != nil {
			t.Fatal(err)
		}
		if len(f.pages()) != before {
			t.Error("out-of-bounds pages should be ignored")
		}
	})
}

func TestRangeRecords_Bounded(t *testing.T) {
	r := NewRangeRecords()
	for i := 0; i < 5; i++ {
		start := i*10 + 1
		r.Add("b1", 1.0, start, start+9)
	}

	got := r.Get("b1", 1.0)
	if len(got) != MaxRanges {
		t.Fatalf("got %d records, want %d", len(got), MaxRanges)
	}
	// Oldest two fell off.
	if r.Covers("b1", 1.0, 1, 10) || r.Covers("b1", 1.0, 11, 20) {
		t.Error("oldest windows should have been dropped")
	}
	if !r.Covers("b1", 1.0, 41, 50) {
		t.Error("newest window should be retained")
	}
}

func TestRangeRecords_CoversSingleWindowOnly(t *testing.T) {
	r := NewRangeRecords()
	r.Add("b1", 1.0, 1, 10)
	r.Add("b1", 1.0, 11, 20)

	// Two adjacent windows jointly span 5-15, but coverage requires one
	// window to contain the whole target.
	if r.Covers("b1", 1.0, 5, 15) {
		t.Error("coverage must come from a single window")
	}
	if !r.Covers("b1", 1.0, 12, 18) {
		t.Error("window inside one record should be covered")
	}
}

func TestPageCache_CapacityAndVersion(t *testing.T) {
	c := NewPageCache(3)

	v0 := c.Version()
	for p := 1; p <= 4; p++ {
		c.Put(&Page{BookID: "b1", Scale: 1.0, Num: p, Data: []byte("x")})
	}

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if c.Has(PageKey{BookID: "b1", Scale: 1.0, Page: 1}) {
		t.Error("oldest inserted page should have been trimmed")
	}
	if c.Version() != v0+4 {
		t.Errorf("version = %d, want %d", c.Version(), v0+4)
	}
}

func TestPageCache_OnUpdate(t *testing.T) {
	c := NewPageCache(0)
	calls := 0
	c.OnUpdate(func() { calls++ })

	c.Put(&Page{BookID: "b1", Scale: 1.0, Num: 1, Data: []byte("x")})
	c.Put(&Page{BookID: "b1", Scale: 1.0, Num: 2, Data: []byte("y")})

	if calls != 2 {
		t.Errorf("update callback ran %d times, want 2", calls)
	}
}

func TestState_String(t *testing.T) {
	if StateIdle.String() != "idle" || StatePreloading.String() != "preloading" || StateAborting.String() != "aborting" {
		t.Error("state strings are wrong")
	}
	if State(99).String() != "unknown" {
		t.Error("unknown state should stringify as unknown")
	}
}
