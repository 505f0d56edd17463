package splitter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/julia-Lukaszewska/readerpane/internal/blobstore"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
	"github.com/julia-Lukaszewska/readerpane/internal/testutil"
)

func TestWindows(t *testing.T) {
	tests := []struct {
		name       string
		totalPages int
		rangeSize  int
		want       []Window
	}{
		{
			name:       "exact multiple",
			totalPages: 48,
			rangeSize:  24,
			want:       []Window{{1, 24}, {25, 48}},
		},
		{
			name:       "trailing partial window",
			totalPages: 60,
			rangeSize:  24,
			want:       []Window{{1, 24}, {25, 48}, {49, 60}},
		},
		{
			name:       "single short document",
			totalPages: 10,
			rangeSize:  24,
			want:       []Window{{1, 10}},
		},
		{
			name:       "one page",
			totalPages: 1,
			rangeSize:  24,
			want:       []Window{{1, 1}},
		},
		{
			name:       "range size one",
			totalPages: 3,
			rangeSize:  1,
			want:       []Window{{1, 1}, {2, 2}, {3, 3}},
		},
		{
			name:       "zero pages",
			totalPages: 0,
			rangeSize:  24,
			want:       nil,
		},
		{
			name:       "invalid range size",
			totalPages: 10,
			rangeSize:  0,
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Windows(tt.totalPages, tt.rangeSize)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d windows %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("window %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWindows_Invariants(t *testing.T) {
	// Windows must tile [1, totalPages] contiguously with no window wider
	// than rangeSize, for arbitrary shapes.
	for _, totalPages := range []int{1, 23, 24, 25, 47, 48, 49, 100, 481} {
		wins := Windows(totalPages, 24)
		next := 1
		for _, w := range wins {
			if w.Start != next {
				t.Fatalf("totalPages=%d: window starts at %d, want %d", totalPages, w.Start, next)
			}
			if w.End-w.Start+1 > 24 {
				t.Fatalf("totalPages=%d: window %v wider than 24", totalPages, w)
			}
			next = w.End + 1
		}
		if next != totalPages+1 {
			t.Fatalf("totalPages=%d: windows cover to %d", totalPages, next-1)
		}
	}
}

func TestRangeBlobName(t *testing.T) {
	got := RangeBlobName("book.pdf", 25, 48)
	if got != "book.pdf_r25-48" {
		t.Errorf("got %q, want %q", got, "book.pdf_r25-48")
	}
}

func TestResult_BlobNames(t *testing.T) {
	res := &Result{
		Ranges: []catalog.RangeDescriptor{
			{Start: 1, End: 24, BlobName: "a_r1-24"},
			{Start: 25, End: 48, BlobName: "a_r25-48"},
		},
	}
	names := res.BlobNames()
	if len(names) != 2 || names[0] != "a_r1-24" || names[1] != "a_r25-48" {
		t.Errorf("BlobNames() = %v", names)
	}
}

func TestIngest_ValidatesInput(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	cat := catalog.NewMemoryStore()

	t.Run("empty base name", func(t *testing.T) {
		_, err := Ingest(ctx, store, cat, IngestRequest{PDFPath: "/tmp/x.pdf"})
		if err == nil {
			t.Error("expected error for empty base name")
		}
	})

	t.Run("base name with path separators", func(t *testing.T) {
		for _, name := range []string{"a/b.pdf", `a\b.pdf`, "../escape.pdf"} {
			_, err := Ingest(ctx, store, cat, IngestRequest{PDFPath: "/tmp/x.pdf", BaseName: name})
			if err == nil {
				t.Errorf("expected error for base name %q", name)
			}
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Ingest(ctx, store, cat, IngestRequest{
			PDFPath:  filepath.Join(t.TempDir(), "nope.pdf"),
			BaseName: "nope.pdf",
		})
		if err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestIngest_SplitsAndCatalogs(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	cat := catalog.NewMemoryStore()
	path := testutil.WriteMinimalPDF(t, t.TempDir(), 5)

	doc, err := Ingest(ctx, store, cat, IngestRequest{
		PDFPath:   path,
		BaseName:  "book.pdf",
		Owner:     "local",
		RangeSize: 2,
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if doc.TotalPages != 5 || doc.RangeSize != 2 {
		t.Errorf("doc pages=%d rangeSize=%d, want 5/2", doc.TotalPages, doc.RangeSize)
	}
	if len(doc.Ranges) != 3 {
		t.Fatalf("got %d ranges, want 3", len(doc.Ranges))
	}
	for _, name := range []string{"book.pdf", "book.pdf_r1-2", "book.pdf_r3-4", "book.pdf_r5-5"} {
		if ok, _ := store.Exists(ctx, name); !ok {
			t.Errorf("blob %s missing after ingest", name)
		}
	}
	if _, err := cat.Get(ctx, "book.pdf"); err != nil {
		t.Errorf("catalog record missing: %v", err)
	}
}

func TestIngest_DuplicateKeepsExistingBlobs(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	cat := catalog.NewMemoryStore()
	path := testutil.WriteMinimalPDF(t, t.TempDir(), 3)

	if _, err := Ingest(ctx, store, cat, IngestRequest{
		PDFPath: path, BaseName: "book.pdf", Owner: "local",
	}); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	before := store.Names()
	rc, err := store.Open(ctx, "book.pdf")
	if err != nil {
		t.Fatal(err)
	}
	orig, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatal(err)
	}

	// A second ingest of the same base name must be refused before any
	// blob is written, leaving the cataloged document fully intact.
	_, err = Ingest(ctx, store, cat, IngestRequest{
		PDFPath: path, BaseName: "book.pdf", Owner: "local",
	})
	if !errors.Is(err, catalog.ErrAlreadyExists) {
		t.Fatalf("error = %v, want ErrAlreadyExists", err)
	}
	if after := store.Names(); len(after) != len(before) {
		t.Errorf("blob set changed: before %v, after %v", before, after)
	}
	rc, err = store.Open(ctx, "book.pdf")
	if err != nil {
		t.Fatalf("main blob gone after refused ingest: %v", err)
	}
	now, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(orig, now) {
		t.Error("main blob content changed after refused ingest")
	}
	if _, err := cat.Get(ctx, "book.pdf"); err != nil {
		t.Errorf("catalog record lost: %v", err)
	}
}

func TestIngest_RollbackOnSplitFailure(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	cat := catalog.NewMemoryStore()

	// Not a PDF: the split's page count fails after the base blob has
	// already been uploaded, which must trigger the compensating delete.
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Ingest(ctx, store, cat, IngestRequest{PDFPath: path, BaseName: "garbage.pdf"})
	if err == nil {
		t.Fatal("expected ingest to fail on a non-PDF")
	}

	if names := store.Names(); len(names) != 0 {
		t.Errorf("rollback left blobs behind: %v", names)
	}
	if docs, _ := cat.List(ctx); len(docs) != 0 {
		t.Errorf("rollback left catalog records behind: %d", len(docs))
	}
}
