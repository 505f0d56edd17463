package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/julia-Lukaszewska/readerpane/internal/api"
	"github.com/julia-Lukaszewska/readerpane/internal/blobstore"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
	"github.com/julia-Lukaszewska/readerpane/internal/httprange"
	"github.com/julia-Lukaszewska/readerpane/internal/svcctx"
)

const (
	blobContentType   = "application/pdf"
	readyProbeTimeout = 5 * time.Second
)

// streamBlob serves a named blob honoring byte-range semantics.
//
// Without a Range header the whole blob is streamed with 200. With one,
// the single combined range is resolved against the blob length; a
// malformed or unsatisfiable range yields 416 with "Content-Range:
// bytes */<length>". The blob reader is piped straight to the response so
// the network, not memory, bounds throughput. A read error after headers
// are sent aborts the response rather than writing an error body.
func streamBlob(w http.ResponseWriter, r *http.Request, name string) {
	ctx := r.Context()
	store := svcctx.StoreFrom(ctx)
	log := svcctx.LoggerFrom(ctx)

	size, err := store.Stat(ctx, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("blob %s not found", name))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", blobContentType)

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		rc, err := store.Open(ctx, name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			if log != nil {
				log.Error("stream failed mid-response", "blob", name, "error", err)
			}
			panic(http.ErrAbortHandler)
		}
		return
	}

	br, err := httprange.Parse(rangeHeader, size)
	if err != nil {
		w.Header().Set("Content-Range", httprange.Unsatisfiable(size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	rc, err := store.OpenRange(ctx, name, br.Start, br.Length())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Range", br.ContentRange(size))
	w.Header().Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	if _, err := io.Copy(w, rc); err != nil {
		if log != nil {
			log.Error("stream failed mid-response", "blob", name, "error", err)
		}
		panic(http.ErrAbortHandler)
	}
}

// BlobHeadEndpoint handles HEAD /api/docs/{name}.
type BlobHeadEndpoint struct{}

var _ api.Endpoint = (*BlobHeadEndpoint)(nil)

func (e *BlobHeadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "HEAD", "/api/docs/{name}", e.handler
}

func (e *BlobHeadEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Probe document length
//	@Description	Report the byte length and range support of a stored document
//	@Tags			docs
//	@Param			name	path	string	true	"Blob name"
//	@Success		200
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/docs/{name} [head]
func (e *BlobHeadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx := r.Context()

	size, err := svcctx.StoreFrom(ctx).Stat(ctx, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", blobContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
}

func (e *BlobHeadEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}

// BlobGetEndpoint handles GET /api/docs/{name}: whole or partial bytes.
type BlobGetEndpoint struct{}

var _ api.Endpoint = (*BlobGetEndpoint)(nil)

func (e *BlobGetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs/{name}", e.handler
}

func (e *BlobGetEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Fetch document bytes
//	@Description	Stream a stored document, honoring a single byte range
//	@Tags			docs
//	@Produce		application/pdf
//	@Param			name	path	string	true	"Blob name"
//	@Param			Range	header	string	false	"Byte range (bytes=start-end)"
//	@Success		200	{file}	binary
//	@Success		206	{file}	binary
//	@Failure		404	{object}	ErrorResponse
//	@Failure		416
//	@Router			/api/docs/{name} [get]
func (e *BlobGetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	streamBlob(w, r, r.PathValue("name"))
}

func (e *BlobGetEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}

// DeleteDocEndpoint handles DELETE /api/docs/{name}.
type DeleteDocEndpoint struct{}

var _ api.Endpoint = (*DeleteDocEndpoint)(nil)

func (e *DeleteDocEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/docs/{name}", e.handler
}

func (e *DeleteDocEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a document
//	@Description	Remove a document, its range blobs, and its catalog record
//	@Tags			docs
//	@Param			name	path	string	true	"Blob name"
//	@Param			X-Owner	header	string	true	"Owner identity"
//	@Success		200	{object}	DeleteDocResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/docs/{name} [delete]
func (e *DeleteDocEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
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

	if owner := r.Header.Get("X-Owner"); owner != doc.Owner {
		writeError(w, http.StatusForbidden, "not the document owner")
		return
	}

	// Blob deletes are best-effort; the catalog record is removed
	// regardless so the document disappears from the library.
	for _, rd := range doc.Ranges {
		if err := store.Delete(ctx, rd.BlobName); err != nil && log != nil {
			log.Error("failed to delete range blob", "blob", rd.BlobName, "error", err)
		}
	}
	if err := store.Delete(ctx, doc.BlobName); err != nil && log != nil {
		log.Error("failed to delete document blob", "blob", doc.BlobName, "error", err)
	}
	if err := cat.Delete(ctx, name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, DeleteDocResponse{Deleted: name})
}

// DeleteDocResponse is the response for a successful delete.
type DeleteDocResponse struct {
	Deleted string `json:"deleted"`
}

func (e *DeleteDocEndpoint) Command(getServerURL func() string) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a document from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/docs/"+args[0], map[string]string{"X-Owner": owner})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "local", "Owner identity")
	return cmd
}
