// Package httprange parses HTTP Range headers for blob streaming.
//
// Only a single combined byte range is supported; multipart ranges are
// rejected. This matches what the reading surface actually sends.
package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned for headers that do not parse.
	ErrMalformed = errors.New("malformed range header")

	// ErrUnsatisfiable is returned when the requested range lies outside
	// the resource. Handlers map this to 416.
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// ByteRange is a resolved byte window, inclusive on both ends.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes in the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange returns the Content-Range header value for a 206 response.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Unsatisfiable returns the Content-Range header value for a 416 response.
func Unsatisfiable(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// Parse resolves a Range header value against a resource of the given size.
//
// Supported forms: "bytes=0-99", "bytes=100-" (to end), "bytes=-100"
// (suffix). An end beyond the resource is clamped, per RFC 9110.
func Parse(header string, size int64) (ByteRange, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return ByteRange{}, ErrMalformed
	}
	spec := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if strings.Contains(spec, ",") {
		// Multipart ranges are not supported.
		return ByteRange{}, ErrMalformed
	}

	start, end, ok := strings.Cut(spec, "-")
	if !ok {
		return ByteRange{}, ErrMalformed
	}
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)

	if start == "" {
		// Suffix range: last N bytes.
		n, err := strconv.ParseInt(end, 10, 64)
		if err != nil || n <= 0 {
			return ByteRange{}, ErrMalformed
		}
		if n > size {
			n = size
		}
		if size == 0 {
			return ByteRange{}, ErrUnsatisfiable
		}
		return ByteRange{Start: size - n, End: size - 1}, nil
	}

	first, err := strconv.ParseInt(start, 10, 64)
	if err != nil || first < 0 {
		return ByteRange{}, ErrMalformed
	}
	if first >= size {
		return ByteRange{}, ErrUnsatisfiable
	}

	if end == "" {
		return ByteRange{Start: first, End: size - 1}, nil
	}

	last, err := strconv.ParseInt(end, 10, 64)
	if err != nil || last < first {
		return ByteRange{}, ErrMalformed
	}
	if last >= size {
		last = size - 1
	}
	return ByteRange{Start: first, End: last}, nil
}
