package endpoints

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/julia-Lukaszewska/readerpane/internal/api"
	"github.com/julia-Lukaszewska/readerpane/internal/blobstore"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
	"github.com/julia-Lukaszewska/readerpane/internal/pdfpage"
	"github.com/julia-Lukaszewska/readerpane/internal/svcctx"
)

// ephemeralPrefix namespaces blobs that exist only for the duration of one
// response. Anything under it that survives a crash is garbage, not data.
const ephemeralPrefix = "tmp/"

// PageRangeEndpoint handles GET /api/docs/{name}/pages.
//
// It resolves a page window to a blob: an exactly matching cataloged range
// blob when one exists, otherwise a freshly extracted sub-document that is
// deleted as soon as the response finishes.
type PageRangeEndpoint struct{}

var _ api.Endpoint = (*PageRangeEndpoint)(nil)

func (e *PageRangeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs/{name}/pages", e.handler
}

func (e *PageRangeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Fetch a page window
//	@Description	Stream a standalone PDF holding the requested page window
//	@Tags			docs
//	@Produce		application/pdf
//	@Param			name	path	string	true	"Blob name"
//	@Param			start	query	int		true	"First page (1-indexed)"
//	@Param			end		query	int		true	"Last page (inclusive)"
//	@Param			Range	header	string	false	"Byte range (bytes=start-end)"
//	@Success		200	{file}	binary
//	@Success		206	{file}	binary
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/docs/{name}/pages [get]
func (e *PageRangeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	start, err := strconv.Atoi(r.URL.Query().Get("start"))
	if err != nil || start < 1 {
		writeError(w, http.StatusBadRequest, "start must be a positive integer")
		return
	}
	end, err := strconv.Atoi(r.URL.Query().Get("end"))
	if err != nil || end < start {
		writeError(w, http.StatusBadRequest, "end must be an integer >= start")
		return
	}

	ctx := r.Context()
	store := svcctx.StoreFrom(ctx)
	cat := svcctx.CatalogFrom(ctx)
	log := svcctx.LoggerFrom(ctx)

	doc, err := cat.Get(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if start > doc.TotalPages {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("start %d exceeds total pages %d", start, doc.TotalPages))
		return
	}
	if end > doc.TotalPages {
		end = doc.TotalPages
	}

	// Fast path: an exact-bound cataloged range blob, verified to still
	// exist in the store before it is promised to the client.
	if rd, ok := doc.FindRange(start, end); ok {
		exists, err := store.Exists(ctx, rd.BlobName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if exists {
			streamBlob(w, r, rd.BlobName)
			return
		}
		if log != nil {
			log.Warn("cataloged range blob missing, extracting instead", "blob", rd.BlobName)
		}
	}

	// Slow path: pull the full document into scratch, extract the window,
	// stage it as an ephemeral blob, stream, delete.
	scratch, err := svcctx.HomeFrom(ctx).TempScratchDir("pages-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(scratch)

	srcPath := filepath.Join(scratch, "src.pdf")
	if err := downloadBlob(r, store, name, srcPath); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dstPath := filepath.Join(scratch, "window.pdf")
	if err := pdfpage.ExtractRange(srcPath, dstPath, start, end); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ephemeral := ephemeralPrefix + uuid.New().String() + ".pdf"
	f, err := os.Open(dstPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	err = store.Put(ctx, ephemeral, f)
	f.Close()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The ephemeral blob dies with the response, success or not. Runs on
	// abort panics too, and on a detached context so a client disconnect
	// cannot leave the blob behind.
	defer func() {
		if err := store.Delete(context.WithoutCancel(ctx), ephemeral); err != nil && log != nil {
			log.Error("failed to delete ephemeral blob", "blob", ephemeral, "error", err)
		}
	}()

	streamBlob(w, r, ephemeral)
}

func (e *PageRangeEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}

// downloadBlob copies a blob from the store to a local file.
func downloadBlob(r *http.Request, store blobstore.Store, name, dstPath string) error {
	rc, err := store.Open(r.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to open blob %s: %w", name, err)
	}
	defer rc.Close()

	f, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	return f.Close()
}
