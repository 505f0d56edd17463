package preload

import (
	"context"
	"fmt"
	"net/url"

	"github.com/julia-Lukaszewska/readerpane/internal/api"
)

// HTTPFetcher fetches rendered pages from a running readerpane server.
type HTTPFetcher struct {
	Client *api.Client
}

var _ Fetcher = (*HTTPFetcher)(nil)

// FetchPage retrieves the rendered raster for one page. Blob names may
// contain spaces and other URL-significant characters, so the path
// segment is escaped.
func (f *HTTPFetcher) FetchPage(ctx context.Context, blobName string, page int, scale float64) ([]byte, error) {
	path := fmt.Sprintf("/api/docs/%s/page/%d?scale=%g", url.PathEscape(blobName), page, scale)
	return f.Client.GetBytes(ctx, path)
}
