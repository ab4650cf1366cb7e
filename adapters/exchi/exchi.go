// Package exchi connects a resolver to a chi router, so that unmatched
// routes and methods are answered with problem responses.
package exchi

import (
	"net/http"

	"github.com/danielgtaylor/exhandler"
	"github.com/go-chi/chi/v5"
)

var methods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// Register sets the router's NotFound and MethodNotAllowed handlers.
func Register(r chi.Router, resolver *exhandler.Resolver) {
	r.NotFound(resolver.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler(r, resolver).ServeHTTP)
}

// MethodNotAllowedHandler responds with a MethodNotAllowedError listing the
// methods the routes support for the request path.
func MethodNotAllowedHandler(routes chi.Routes, resolver *exhandler.Resolver) http.Handler {
	return resolver.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return exhandler.NewMethodNotAllowedError(r.Method, AllowedMethods(routes, r)...)
	})
}

// AllowedMethods returns the methods with a route matching the request path.
func AllowedMethods(routes chi.Routes, r *http.Request) []string {
	path := r.URL.RawPath
	if path == "" {
		path = r.URL.Path
	}

	var allowed []string
	for _, m := range methods {
		if routes.Match(chi.NewRouteContext(), m, path) {
			allowed = append(allowed, m)
		}
	}
	return allowed
}

// Wrap adapts an error-returning handler for use with chi routes.
//
//	r.Get("/widgets/{id}", exchi.Wrap(resolver, getWidget))
func Wrap(resolver *exhandler.Resolver, h exhandler.ErrorHandlerFunc) http.HandlerFunc {
	return resolver.Wrap(h).ServeHTTP
}
