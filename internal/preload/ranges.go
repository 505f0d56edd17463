package preload

import "sync"

// MaxRanges bounds how many preloaded windows are remembered per
// (book, scale). Older records fall off; they are a skip hint, not an
// authoritative cache index.
const MaxRanges = 3

type rangeKey struct {
	BookID string
	Scale  float64
}

// RangeRecords remembers recently preloaded page windows so a preload
// whose window is already covered can be skipped.
type RangeRecords struct {
	mu sync.Mutex
	m  map[rangeKey][][2]int
}

// NewRangeRecords creates an empty record set.
func NewRangeRecords() *RangeRecords {
	return &RangeRecords{m: make(map[rangeKey][][2]int)}
}

// Add appends the window [start, end] for (bookID, scale), keeping only
// the MaxRanges most recently inserted windows.
func (r *RangeRecords) Add(bookID string, scale float64, start, end int) {
	key := rangeKey{BookID: bookID, Scale: scale}
	r.mu.Lock()
	defer r.mu.Unlock()

	ranges := append(r.m[key], [2]int{start, end})
	if len(ranges) > MaxRanges {
		ranges = ranges[len(ranges)-MaxRanges:]
	}
	r.m[key] = ranges
}

// Covers reports whether any single recorded window fully contains
// [start, end].
func (r *RangeRecords) Covers(bookID string, scale float64, start, end int) bool {
	key := rangeKey{BookID: bookID, Scale: scale}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, win := range r.m[key] {
		if win[0] <= start && end <= win[1] {
			return true
		}
	}
	return false
}

// Get returns the recorded windows for (bookID, scale) in insertion order.
func (r *RangeRecords) Get(bookID string, scale float64) [][2]int {
	key := rangeKey{BookID: bookID, Scale: scale}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][2]int, len(r.m[key]))
	copy(out, r.m[key])
	return out
}
