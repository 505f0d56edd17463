// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MinimalPDF builds a valid PDF with the given number of empty US Letter
// pages, suitable as a fixture for page counting, extraction, and metadata
// tests. rotate maps 1-indexed page numbers to /Rotate values (multiples
// of 90); pages not listed carry no rotation entry.
func MinimalPDF(pageCount int, rotate map[int]int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, pageCount)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pageCount))
	for i := 0; i < pageCount; i++ {
		extra := ""
		if r, ok := rotate[i+1]; ok {
			extra = fmt.Sprintf(" /Rotate %d", r)
		}
		obj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]%s >>\nendobj\n",
			i+3, extra))
	}

	// The xref table needs exact byte offsets, so it is emitted last from
	// the positions recorded while writing the objects.
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref)
	return buf.Bytes()
}

// WriteMinimalPDF writes a MinimalPDF fixture into dir and returns its path.
func WriteMinimalPDF(t *testing.T, dir string, pageCount int) string {
	t.Helper()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, MinimalPDF(pageCount, nil), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
