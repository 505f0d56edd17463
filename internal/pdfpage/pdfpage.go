// Package pdfpage wraps the PDF operations the streaming core needs:
// page counting, page-range extraction into standalone sub-documents,
// per-page dimension metadata, and single-page raster rendering.
package pdfpage

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// renderBaseDPI is the render resolution at scale 1.0.
const renderBaseDPI = 144

// conf returns the pdfcpu configuration used for all operations.
// Relaxed validation keeps slightly malformed uploads readable.
func conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// PageDim describes one page's media box and rotation.
type PageDim struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
}

// PageDims returns the dimensions of every page, in page order. Width and
// height reflect the effective rotation, so a portrait page rotated 90
// degrees reports landscape dimensions.
func PageDims(path string) ([]PageDim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	ctx, err := api.ReadAndValidate(f, conf())
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	pbs, err := ctx.PageBoundaries(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	out := make([]PageDim, len(pbs))
	for i, pb := range pbs {
		d := pb.MediaBox().Dimensions()
		if pb.Rot%180 != 0 {
			d.Width, d.Height = d.Height, d.Width
		}
		out[i] = PageDim{Width: d.Width, Height: d.Height, Rotation: pb.Rot}
	}
	return out, nil
}

// ExtractRange writes pages [start, end] (1-indexed, inclusive) of the PDF
// at srcPath into a standalone PDF at dstPath.
func ExtractRange(srcPath, dstPath string, start, end int) error {
	if start < 1 || end < start {
		return fmt.Errorf("invalid page range %d-%d", start, end)
	}
	sel := []string{fmt.Sprintf("%d-%d", start, end)}
	if err := api.TrimFile(srcPath, dstPath, sel, conf()); err != nil {
		return fmt.Errorf("failed to extract pages %d-%d: %w", start, end, err)
	}
	return nil
}

// RenderPage rasterizes one page of the PDF at path to PNG bytes.
// scale 1.0 renders at the base resolution; larger scales render
// proportionally more pixels. Rendering shells out to pdftoppm
// (poppler-utils), which must be on PATH.
func RenderPage(path string, page int, scale float64) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page number %d", page)
	}
	if scale <= 0 {
		scale = 1.0
	}
	dpi := int(renderBaseDPI * scale)
	if dpi < 36 {
		dpi = 36
	}

	tmpDir, err := os.MkdirTemp("", "readerpane-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := fmt.Sprintf("%d", page)
	cmd := exec.Command("pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		path,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}
