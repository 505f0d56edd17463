package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/julia-Lukaszewska/readerpane/internal/api"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
	"github.com/julia-Lukaszewska/readerpane/internal/pagecache"
	"github.com/julia-Lukaszewska/readerpane/internal/pdfpage"
	"github.com/julia-Lukaszewska/readerpane/internal/svcctx"
)

// maxRenderScale caps the render scale so one request cannot demand an
// arbitrarily large raster.
const maxRenderScale = 4.0

// PageImageEndpoint handles GET /api/docs/{name}/page/{page}.
//
// Rendered images are served through the page image cache, so repeated
// requests for the same (blob, page, scale) hit memory instead of poppler.
type PageImageEndpoint struct{}

var _ api.Endpoint = (*PageImageEndpoint)(nil)

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs/{name}/page/{page}", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Render one page
//	@Description	Rasterize a single page to PNG at the requested scale
//	@Tags			docs
//	@Produce		image/png
//	@Param			name	path	string	true	"Blob name"
//	@Param			page	path	int		true	"Page number (1-indexed)"
//	@Param			scale	query	number	false	"Render scale (default 1.0)"
//	@Success		200	{file}	binary
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/docs/{name}/page/{page} [get]
func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}

	scale := 1.0
	if s := r.URL.Query().Get("scale"); s != "" {
		scale, err = strconv.ParseFloat(s, 64)
		if err != nil || scale <= 0 || scale > maxRenderScale {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("scale must be in (0, %g]", maxRenderScale))
			return
		}
	}

	ctx := r.Context()
	store := svcctx.StoreFrom(ctx)
	cat := svcctx.CatalogFrom(ctx)

	doc, err := cat.Get(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Reject before any blob I/O happens.
	if page > doc.TotalPages {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("page %d exceeds total pages %d", page, doc.TotalPages))
		return
	}

	key := pagecache.Key{BlobName: name, Page: page, Scale: scale}
	buf, err := svcctx.PageCacheFrom(ctx).Get(key, func() ([]byte, error) {
		scratch, err := svcctx.HomeFrom(ctx).TempScratchDir("render-*")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(scratch)

		srcPath := filepath.Join(scratch, "src.pdf")
		if err := downloadBlob(r, store, name, srcPath); err != nil {
			return nil, err
		}
		return pdfpage.RenderPage(srcPath, page, scale)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf)
}

func (e *PageImageEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}
