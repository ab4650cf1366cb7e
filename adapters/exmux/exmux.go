// Package exmux connects a resolver to a gorilla/mux router.
package exmux

import (
	"net/http"

	"github.com/danielgtaylor/exhandler"
	"github.com/gorilla/mux"
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
func Register(r *mux.Router, resolver *exhandler.Resolver) {
	r.NotFoundHandler = resolver.NotFoundHandler()
	r.MethodNotAllowedHandler = resolver.Wrap(func(w http.ResponseWriter, req *http.Request) error {
		return exhandler.NewMethodNotAllowedError(req.Method, AllowedMethods(r, req)...)
	})
}

// AllowedMethods returns the methods with a route matching the request.
func AllowedMethods(r *mux.Router, req *http.Request) []string {
	var allowed []string
	for _, m := range methods {
		probe := req.Clone(req.Context())
		probe.Method = m
		var match mux.RouteMatch
		if r.Match(probe, &match) && match.MatchErr == nil {
			allowed = append(allowed, m)
		}
	}
	return allowed
}
