package endpoints

import (
	"github.com/julia-Lukaszewska/readerpane/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Document endpoints
		&UploadEndpoint{},
		&ListDocsEndpoint{},
		&DocInfoEndpoint{},
		&DocMetaEndpoint{},
		&DeleteDocEndpoint{},

		// Streaming endpoints
		&BlobHeadEndpoint{},
		&PageRangeEndpoint{},
		&PageImageEndpoint{},
		&BlobGetEndpoint{},
	}
}
