// Package catalog holds document records and their page-range descriptors.
//
// A Document is created at upload time. Its Ranges field is populated once
// by the range splitter and read by the range resolver; everything else on
// the record belongs to the surrounding metadata CRUD, which is out of
// scope here.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no document record exists for a name.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when a record with the same blob name
	// is already cataloged.
	ErrAlreadyExists = errors.New("document already exists")
)

// RangeDescriptor records a contiguous page window and the blob holding
// exactly those pages. Start and End are 1-indexed inclusive.
type RangeDescriptor struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	BlobName string `json:"filename"`
	BlobID   string `json:"fileId"`
}

// Document is the catalog record for one uploaded document.
type Document struct {
	ID         string            `json:"id"`
	BlobName   string            `json:"blobName"`
	BlobID     string            `json:"blobId"`
	Owner      string            `json:"owner"`
	TotalPages int               `json:"totalPages"`
	RangeSize  int               `json:"rangeSize"`
	Ranges     []RangeDescriptor `json:"ranges"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// FindRange returns the descriptor whose bounds match (start, end) exactly.
// Windows that fall inside a wider cataloged range deliberately miss: only
// exact-bound matches are served from the catalog.
func (d *Document) FindRange(start, end int) (RangeDescriptor, bool) {
	for _, r := range d.Ranges {
		if r.Start == start && r.End == end {
			return r, true
		}
	}
	return RangeDescriptor{}, false
}

// ValidateRanges checks the catalog invariant: descriptors are contiguous,
// non-overlapping, cover [1, TotalPages] exactly, and each window is at
// most RangeSize pages wide.
func (d *Document) ValidateRanges() error {
	next := 1
	for i, r := range d.Ranges {
		if r.Start != next {
			return fmt.Errorf("range %d starts at %d, want %d", i, r.Start, next)
		}
		if r.End < r.Start {
			return fmt.Errorf("range %d has end %d before start %d", i, r.End, r.Start)
		}
		if d.RangeSize > 0 && r.End-r.Start+1 > d.RangeSize {
			return fmt.Errorf("range %d spans %d pages, max %d", i, r.End-r.Start+1, d.RangeSize)
		}
		next = r.End + 1
	}
	if next != d.TotalPages+1 {
		return fmt.Errorf("ranges cover [1,%d], want [1,%d]", next-1, d.TotalPages)
	}
	return nil
}

// Store persists document records. Implementations must be safe for
// concurrent use by HTTP handlers.
type Store interface {
	// Put inserts a new record. Returns ErrAlreadyExists on name collision.
	Put(ctx context.Context, doc *Document) error

	// Get returns the record for the given blob name.
	Get(ctx context.Context, blobName string) (*Document, error)

	// List returns all records.
	List(ctx context.Context) ([]*Document, error)

	// Delete removes the record for the given blob name.
	Delete(ctx context.Context, blobName string) error
}
