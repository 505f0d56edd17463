package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/julia-Lukaszewska/readerpane/internal/api"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
	"github.com/julia-Lukaszewska/readerpane/internal/splitter"
	"github.com/julia-Lukaszewska/readerpane/internal/svcctx"
)

// maxUploadBytes bounds the multipart form memory buffer; larger files
// spill to disk.
const maxUploadBytes = 64 << 20

// UploadEndpoint handles POST /api/docs: multipart document upload.
type UploadEndpoint struct{}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/docs", e.handler
}

func (e *UploadEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a document
//	@Description	Store a PDF, split it into range blobs, and catalog it
//	@Tags			docs
//	@Accept			multipart/form-data
//	@Param			document	formData	file	true	"PDF file"
//	@Param			range_size	formData	int		false	"Pages per range blob"
//	@Param			X-Owner		header		string	false	"Owner identity (default local)"
//	@Success		201	{object}	catalog.Document
//	@Failure		400	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/docs [post]
func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "document file is required")
		return
	}
	defer file.Close()

	rangeSize := 0
	if rs := r.FormValue("range_size"); rs != "" {
		rangeSize, err = strconv.Atoi(rs)
		if err != nil || rangeSize < 1 {
			writeError(w, http.StatusBadRequest, "range_size must be a positive integer")
			return
		}
	}

	owner := r.Header.Get("X-Owner")
	if owner == "" {
		owner = r.FormValue("owner")
	}
	if owner == "" {
		owner = "local"
	}

	ctx := r.Context()
	log := svcctx.LoggerFrom(ctx)
	if rangeSize == 0 {
		if mgr := svcctx.ConfigMgrFrom(ctx); mgr != nil {
			rangeSize = mgr.Get().Ingest.RangeSize
		}
	}

	scratch, err := svcctx.HomeFrom(ctx).TempScratchDir("upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(scratch)

	localPath := filepath.Join(scratch, "upload.pdf")
	out, err := os.Create(localPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save upload: %v", err))
		return
	}
	out.Close()

	doc, err := splitter.Ingest(ctx, svcctx.StoreFrom(ctx), svcctx.CatalogFrom(ctx), splitter.IngestRequest{
		PDFPath:   localPath,
		BaseName:  filepath.Base(header.Filename),
		Owner:     owner,
		RangeSize: rangeSize,
		Logger:    log,
	})
	if errors.Is(err, catalog.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (e *UploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		owner     string
		rangeSize int
	)
	cmd := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a document to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			fields := map[string]string{"owner": owner}
			if rangeSize > 0 {
				fields["range_size"] = strconv.Itoa(rangeSize)
			}
			var doc catalog.Document
			if err := client.UploadFile(cmd.Context(), "/api/docs", "document", args[0], fields, &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "local", "Owner identity")
	cmd.Flags().IntVar(&rangeSize, "range-size", 0, "Pages per range blob (0 uses the server default)")
	return cmd
}
