// Package exhttprouter connects a resolver to a julienschmidt/httprouter
// router.
package exhttprouter

import (
	"net/http"
	"runtime/debug"

	"github.com/danielgtaylor/exhandler"
	"github.com/danielgtaylor/exhandler/middleware"
	"github.com/julienschmidt/httprouter"
)

// Register sets the router's NotFound, MethodNotAllowed and PanicHandler.
// The router sets the `Allow` header before calling MethodNotAllowed.
func Register(r *httprouter.Router, resolver *exhandler.Resolver) {
	r.HandleMethodNotAllowed = true
	r.NotFound = resolver.NotFoundHandler()
	r.MethodNotAllowed = resolver.MethodNotAllowedHandler()
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v any) {
		err := &middleware.PanicError{Value: v, Stack: debug.Stack()}
		if !resolver.Resolve(w, req, err) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// Handle adapts an error-returning handler with route params.
//
//	r.GET("/widgets/:id", exhttprouter.Handle(resolver, getWidget))
func Handle(resolver *exhandler.Resolver, h func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := h(w, r, ps); err != nil {
			if !resolver.Resolve(w, r, err) {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}
	}
}
