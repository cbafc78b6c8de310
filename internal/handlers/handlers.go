package handlers

import (
	"net/http"

	"homeflix/internal/catalog"
	"homeflix/internal/filesystem"
	"homeflix/internal/scanner"
	"homeflix/internal/startup"
	"homeflix/internal/streaming"
)

// ViewerResolver identifies the viewer behind a request for watch-progress
// tracking. Authentication itself lives outside this service; the resolver
// is the only contact surface.
type ViewerResolver interface {
	// ResolveViewer returns the viewer identity and whether one could be
	// resolved. An unresolved viewer streams fine, it just leaves no
	// watch history.
	ResolveViewer(r *http.Request) (string, bool)
}

// ViewerResolverFunc adapts a function to the ViewerResolver interface.
type ViewerResolverFunc func(r *http.Request) (string, bool)

func (f ViewerResolverFunc) ResolveViewer(r *http.Request) (string, bool) { return f(r) }

// HeaderViewerResolver resolves the viewer from a trusted reverse-proxy
// header.
func HeaderViewerResolver(header string) ViewerResolver {
	return ViewerResolverFunc(func(r *http.Request) (string, bool) {
		id := r.Header.Get(header)
		return id, id != ""
	})
}

type Handlers struct {
	store     *catalog.Store
	scanner   *scanner.Scanner
	viewers   ViewerResolver
	moviesDir string

	streamConfig streaming.Config
	retryConfig  filesystem.RetryConfig
}

func New(store *catalog.Store, scan *scanner.Scanner, viewers ViewerResolver, config *startup.Config) *Handlers {
	return &Handlers{
		store:        store,
		scanner:      scan,
		viewers:      viewers,
		moviesDir:    config.MoviesDir,
		streamConfig: streaming.DefaultConfig(),
		retryConfig:  filesystem.DefaultRetryConfig(),
	}
}
