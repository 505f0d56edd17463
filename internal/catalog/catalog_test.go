package catalog

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testDoc() *Document {
	return &Document{
		ID:         "doc-1",
		BlobName:   "book.pdf",
		BlobID:     "blob-1",
		Owner:      "local",
		TotalPages: 60,
		RangeSize:  24,
		Ranges: []RangeDescriptor{
			{Start: 1, End: 24, BlobName: "book.pdf_r1-24", BlobID: "r1"},
			{Start: 25, End: 48, BlobName: "book.pdf_r25-48", BlobID: "r2"},
			{Start: 49, End: 60, BlobName: "book.pdf_r49-60", BlobID: "r3"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestDocument_FindRange(t *testing.T) {
	doc := testDoc()

	t.Run("exact match", func(t *testing.T) {
		rd, ok := doc.FindRange(25, 48)
		if !ok {
			t.Fatal("expected a match for 25-48")
		}
		if rd.BlobName != "book.pdf_r25-48" {
			t.Errorf("got blob %s, want book.pdf_r25-48", rd.BlobName)
		}
	})

	t.Run("subset does not match", func(t *testing.T) {
		// 30-40 lies inside 25-48 but only exact bounds hit.
		if _, ok := doc.FindRange(30, 40); ok {
			t.Error("subset window should not match")
		}
	})

	t.Run("straddling window does not match", func(t *testing.T) {
		if _, ok := doc.FindRange(20, 30); ok {
			t.Error("straddling window should not match")
		}
	})

	t.Run("no ranges", func(t *testing.T) {
		empty := &Document{}
		if _, ok := empty.FindRange(1, 24); ok {
			t.Error("empty document should not match")
		}
	})
}

func TestDocument_ValidateRanges(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		if err := testDoc().ValidateRanges(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("gap between ranges", func(t *testing.T) {
		doc := testDoc()
		doc.Ranges[1].Start = 26
		if err := doc.ValidateRanges(); err == nil {
			t.Error("expected error for gap")
		}
	})

	t.Run("overlap", func(t *testing.T) {
		doc := testDoc()
		doc.Ranges[1].Start = 24
		if err := doc.ValidateRanges(); err == nil {
			t.Error("expected error for overlap")
		}
	})

	t.Run("incomplete coverage", func(t *testing.T) {
		doc := testDoc()
		doc.Ranges = doc.Ranges[:2]
		if err := doc.ValidateRanges(); err == nil {
			t.Error("expected error for incomplete coverage")
		}
	})

	t.Run("oversized window", func(t *testing.T) {
		doc := testDoc()
		doc.Ranges = []RangeDescriptor{{Start: 1, End: 60, BlobName: "x", BlobID: "y"}}
		if err := doc.ValidateRanges(); err == nil {
			t.Error("expected error for window wider than RangeSize")
		}
	})

	t.Run("end before start", func(t *testing.T) {
		doc := testDoc()
		doc.Ranges[0].End = 0
		if err := doc.ValidateRanges(); err == nil {
			t.Error("expected error for inverted range")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc := testDoc()
	if err := s.Put(ctx, doc); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	t.Run("duplicate put", func(t *testing.T) {
		if err := s.Put(ctx, testDoc()); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("get", func(t *testing.T) {
		got, err := s.Get(ctx, "book.pdf")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.ID != doc.ID {
			t.Errorf("got ID %s, want %s", got.ID, doc.ID)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		if _, err := s.Get(ctx, "nope.pdf"); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		docs, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(docs) != 1 {
			t.Errorf("got %d docs, want 1", len(docs))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "book.pdf"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get(ctx, "book.pdf"); !errors.Is(err, ErrNotFound) {
			t.Errorf("error after delete = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, "book.pdf"); !errors.Is(err, ErrNotFound) {
			t.Errorf("double delete error = %v, want ErrNotFound", err)
		}
	})
}
