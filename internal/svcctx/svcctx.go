// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/julia-Lukaszewska/readerpane/internal/blobstore"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
	"github.com/julia-Lukaszewska/readerpane/internal/config"
	"github.com/julia-Lukaszewska/readerpane/internal/home"
	"github.com/julia-Lukaszewska/readerpane/internal/pagecache"
)

// Services holds all core services that flow through context.
// Handlers extract what they need via the individual extractors.
type Services struct {
	Store     blobstore.Store
	Catalog   catalog.Store
	PageCache *pagecache.Cache
	Home      *home.Dir
	ConfigMgr *config.Manager
	Logger    *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the blob store from context.
func StoreFrom(ctx context.Context) blobstore.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// CatalogFrom extracts the catalog store from context.
func CatalogFrom(ctx context.Context) catalog.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Catalog
	}
	return nil
}

// PageCacheFrom extracts the page image cache from context.
func PageCacheFrom(ctx context.Context) *pagecache.Cache {
	if s := ServicesFrom(ctx); s != nil {
		return s.PageCache
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ConfigMgrFrom extracts the config manager from context.
func ConfigMgrFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigMgr
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
