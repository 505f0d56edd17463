// Package splitter partitions an uploaded document into fixed-size page
// ranges and uploads each range as an independent blob.
package splitter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/julia-Lukaszewska/readerpane/internal/blobstore"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
	"github.com/julia-Lukaszewska/readerpane/internal/pdfpage"
)

const (
	// DefaultRangeSize is the default number of pages per range blob.
	DefaultRangeSize = 24

	// DefaultConcurrency bounds simultaneous range uploads.
	DefaultConcurrency = 4

	uploadAttempts = 3
	uploadDelay    = 500 * time.Millisecond
)

// Window is a contiguous page span, 1-indexed inclusive.
type Window struct {
	Start int
	End   int
}

// Windows partitions [1, totalPages] into spans of at most rangeSize pages.
func Windows(totalPages, rangeSize int) []Window {
	if totalPages < 1 || rangeSize < 1 {
		return nil
	}
	wins := make([]Window, 0, (totalPages+rangeSize-1)/rangeSize)
	for start := 1; start <= totalPages; start += rangeSize {
		end := start + rangeSize - 1
		if end > totalPages {
			end = totalPages
		}
		wins = append(wins, Window{Start: start, End: end})
	}
	return wins
}

// RangeBlobName returns the blob name for one range of a document.
func RangeBlobName(baseName string, start, end int) string {
	return fmt.Sprintf("%s_r%d-%d", baseName, start, end)
}

// Config controls a split operation.
type Config struct {
	// RangeSize is the target pages per range (default 24).
	RangeSize int

	// Concurrency bounds simultaneous uploads (default 4).
	Concurrency int

	Logger *slog.Logger
}

// Result is the catalog fragment produced by a split.
type Result struct {
	TotalPages int
	RangeSize  int

	// Ranges holds only the windows that uploaded successfully.
	Ranges []catalog.RangeDescriptor

	// Failed holds the windows whose upload failed, for logging and
	// for the caller's rollback bookkeeping.
	Failed []Window
}

// BlobNames returns the names of all range blobs the split created.
func (r *Result) BlobNames() []string {
	names := make([]string, len(r.Ranges))
	for i, rd := range r.Ranges {
		names[i] = rd.BlobName
	}
	return names
}

// Split partitions the PDF at srcPath into fixed-size windows and uploads
// each as its own blob. All windows are processed concurrently; each
// failure is captured independently and excluded from the result rather
// than aborting sibling uploads.
func Split(ctx context.Context, store blobstore.Store, srcPath, baseName string, cfg Config) (*Result, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.RangeSize <= 0 {
		cfg.RangeSize = DefaultRangeSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	totalPages, err := pdfpage.PageCount(srcPath)
	if err != nil {
		return nil, err
	}

	wins := Windows(totalPages, cfg.RangeSize)
	log.Info("splitting document", "base", baseName, "pages", totalPages, "ranges", len(wins))

	scratch, err := os.MkdirTemp("", "readerpane-split-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	type windowResult struct {
		desc catalog.RangeDescriptor
		err  error
	}
	results := make([]windowResult, len(wins))

	// Settle all windows, then filter failures. Goroutines record errors
	// in their slot instead of returning them so one bad window cannot
	// cancel its siblings.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Concurrency)
	for i, win := range wins {
		eg.Go(func() error {
			desc, err := uploadWindow(egCtx, store, srcPath, scratch, baseName, win)
			results[i] = windowResult{desc: desc, err: err}
			return nil
		})
	}
	_ = eg.Wait()

	res := &Result{TotalPages: totalPages, RangeSize: cfg.RangeSize}
	for i, wr := range results {
		if wr.err != nil {
			log.Error("range upload failed", "base", baseName,
				"start", wins[i].Start, "end", wins[i].End, "error", wr.err)
			res.Failed = append(res.Failed, wins[i])
			continue
		}
		res.Ranges = append(res.Ranges, wr.desc)
	}

	log.Info("split complete", "base", baseName,
		"uploaded", len(res.Ranges), "failed", len(res.Failed))
	return res, nil
}

// uploadWindow extracts one window into a sub-document and uploads it.
func uploadWindow(ctx context.Context, store blobstore.Store, srcPath, scratch, baseName string, win Window) (catalog.RangeDescriptor, error) {
	name := RangeBlobName(baseName, win.Start, win.End)
	outPath := filepath.Join(scratch, fmt.Sprintf("r%d-%d.pdf", win.Start, win.End))

	if err := pdfpage.ExtractRange(srcPath, outPath, win.Start, win.End); err != nil {
		return catalog.RangeDescriptor{}, err
	}

	err := retry.Do(
		func() error {
			f, err := os.Open(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			return store.Put(ctx, name, f)
		},
		retry.Attempts(uploadAttempts),
		retry.Delay(uploadDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return catalog.RangeDescriptor{}, fmt.Errorf("upload %s: %w", name, err)
	}

	return catalog.RangeDescriptor{
		Start:    win.Start,
		End:      win.End,
		BlobName: name,
		BlobID:   uuid.New().String(),
	}, nil
}
