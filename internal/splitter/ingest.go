package splitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julia-Lukaszewska/readerpane/internal/blobstore"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
)

// IngestRequest holds the parameters for ingesting one uploaded document.
type IngestRequest struct {
	// PDFPath is the local path of the uploaded document.
	PDFPath string

	// BaseName is the canonical blob name for the document.
	BaseName string

	// Owner identifies the uploading user for authorization checks.
	Owner string

	// RangeSize is the target pages per range (default 24).
	RangeSize int

	Logger *slog.Logger
}

// Ingest runs the full upload saga: store the main document blob, split it
// into range blobs, and persist the catalog record.
//
// Every blob created during the attempt is tracked; if any later step
// fails, compensating deletes remove all of them, so a failed ingest
// leaves nothing behind. Individual range-upload failures are not fatal —
// they are logged and excluded from the catalog.
func Ingest(ctx context.Context, store blobstore.Store, cat catalog.Store, req IngestRequest) (*catalog.Document, error) {
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}
	if err := validateBaseName(req.BaseName); err != nil {
		return nil, err
	}
	if _, err := os.Stat(req.PDFPath); err != nil {
		return nil, fmt.Errorf("document not found: %s", req.PDFPath)
	}

	// Refuse duplicates before touching the store: the canonical blob
	// names are derived from the base name, so a second ingest of the
	// same document would overwrite the cataloged blobs and the rollback
	// would then delete them out from under the existing record.
	if _, err := cat.Get(ctx, req.BaseName); err == nil {
		return nil, fmt.Errorf("%w: %s", catalog.ErrAlreadyExists, req.BaseName)
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("failed to check catalog: %w", err)
	}

	// created tracks every blob this attempt uploads, in order, for the
	// compensating rollback. The deletes run on a detached context so a
	// canceled request cannot strand half-uploaded blobs.
	var created []string
	rollback := func(cause error) error {
		log.Warn("ingest failed, rolling back", "base", req.BaseName,
			"blobs", len(created), "error", cause)
		cleanupCtx := context.WithoutCancel(ctx)
		for _, name := range created {
			if err := store.Delete(cleanupCtx, name); err != nil {
				// Cleanup errors must not mask the original failure.
				log.Error("rollback delete failed", "blob", name, "error", err)
			}
		}
		return cause
	}

	f, err := os.Open(req.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	err = store.Put(ctx, req.BaseName, f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}
	created = append(created, req.BaseName)

	res, err := Split(ctx, store, req.PDFPath, req.BaseName, Config{
		RangeSize: req.RangeSize,
		Logger:    log,
	})
	if err != nil {
		return nil, rollback(fmt.Errorf("split failed: %w", err))
	}
	created = append(created, res.BlobNames()...)

	doc := &catalog.Document{
		ID:         uuid.New().String(),
		BlobName:   req.BaseName,
		BlobID:     uuid.New().String(),
		Owner:      req.Owner,
		TotalPages: res.TotalPages,
		RangeSize:  res.RangeSize,
		Ranges:     res.Ranges,
		CreatedAt:  time.Now().UTC(),
	}
	if err := cat.Put(ctx, doc); err != nil {
		return nil, rollback(fmt.Errorf("failed to create catalog record: %w", err))
	}

	log.Info("ingest complete", "base", req.BaseName,
		"pages", doc.TotalPages, "ranges", len(doc.Ranges))
	return doc, nil
}

func validateBaseName(name string) error {
	if name == "" {
		return fmt.Errorf("base name is required")
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid base name: %s", name)
	}
	return nil
}
