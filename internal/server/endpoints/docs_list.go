package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/julia-Lukaszewska/readerpane/internal/api"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
	"github.com/julia-Lukaszewska/readerpane/internal/pdfpage"
	"github.com/julia-Lukaszewska/readerpane/internal/svcctx"
)

// ListDocsEndpoint handles GET /api/docs.
type ListDocsEndpoint struct{}

var _ api.Endpoint = (*ListDocsEndpoint)(nil)

func (e *ListDocsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs", e.handler
}

func (e *ListDocsEndpoint) RequiresInit() bool { return true }

// ListDocsResponse is the response for the document listing.
type ListDocsResponse struct {
	Documents []*catalog.Document `json:"documents"`
	Count     int                 `json:"count"`
}

// handler godoc
//
//	@Summary		List documents
//	@Tags			docs
//	@Produce		json
//	@Success		200	{object}	ListDocsResponse
//	@Router			/api/docs [get]
func (e *ListDocsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	docs, err := svcctx.CatalogFrom(r.Context()).List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListDocsResponse{Documents: docs, Count: len(docs)})
}

func (e *ListDocsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List documents in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListDocsResponse
			if err := client.Get(cmd.Context(), "/api/docs", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DocInfoEndpoint handles GET /api/docs/{name}/info: the catalog record,
// range descriptors included.
type DocInfoEndpoint struct{}

var _ api.Endpoint = (*DocInfoEndpoint)(nil)

func (e *DocInfoEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs/{name}/info", e.handler
}

func (e *DocInfoEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Document catalog record
//	@Tags			docs
//	@Produce		json
//	@Param			name	path	string	true	"Blob name"
//	@Success		200	{object}	catalog.Document
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/docs/{name}/info [get]
func (e *DocInfoEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	doc, err := svcctx.CatalogFrom(r.Context()).Get(r.Context(), name)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (e *DocInfoEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show a document's catalog record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc catalog.Document
			if err := client.Get(cmd.Context(), "/api/docs/"+args[0]+"/info", &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// DocMetaEndpoint handles GET /api/docs/{name}/meta: per-page dimensions
// read from the stored document.
type DocMetaEndpoint struct{}

var _ api.Endpoint = (*DocMetaEndpoint)(nil)

func (e *DocMetaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs/{name}/meta", e.handler
}

func (e *DocMetaEndpoint) RequiresInit() bool { return true }

// DocMetaResponse is the page-geometry metadata for one document.
type DocMetaResponse struct {
	BlobName   string            `json:"blobName"`
	TotalPages int               `json:"totalPages"`
	Pages      []pdfpage.PageDim `json:"pages"`
}

// handler godoc
//
//	@Summary		Document page geometry
//	@Description	Per-page width, height, and rotation
//	@Tags			docs
//	@Produce		json
//	@Param			name	path	string	true	"Blob name"
//	@Success		200	{object}	DocMetaResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/docs/{name}/meta [get]
func (e *DocMetaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx := r.Context()

	doc, err := svcctx.CatalogFrom(ctx).Get(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scratch, err := svcctx.HomeFrom(ctx).TempScratchDir("meta-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(scratch)

	srcPath := filepath.Join(scratch, "src.pdf")
	if err := downloadBlob(r, svcctx.StoreFrom(ctx), name, srcPath); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dims, err := pdfpage.PageDims(srcPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, DocMetaResponse{
		BlobName:   doc.BlobName,
		TotalPages: doc.TotalPages,
		Pages:      dims,
	})
}

func (e *DocMetaEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <name>",
		Short: "Show a document's page geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp DocMetaResponse
			if err := client.Get(cmd.Context(), "/api/docs/"+args[0]+"/meta", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
