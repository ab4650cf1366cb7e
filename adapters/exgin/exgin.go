// Package exgin connects a resolver to gin. Handlers report errors with
// `c.Error(err)` and the middleware turns the last one into a problem
// response.
package exgin

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/exhandler"
	"github.com/gin-gonic/gin"
)

// Middleware resolves the last error added to the context once the handler
// chain has run, unless a response has already been written. Errors the
// resolver cannot handle are answered with a bare 500.
func Middleware(resolver *exhandler.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		if !resolver.Resolve(c.Writer, c.Request, last.Err) {
			c.AbortWithStatus(http.StatusInternalServerError)
		}
	}
}

// Register installs the middleware and handlers for unmatched routes and
// methods on the engine.
func Register(engine *gin.Engine, resolver *exhandler.Resolver) {
	engine.HandleMethodNotAllowed = true
	engine.Use(Middleware(resolver))
	engine.NoRoute(func(c *gin.Context) {
		_ = c.Error(exhandler.NewNoRouteError(c.Request))
	})
	engine.NoMethod(func(c *gin.Context) {
		_ = c.Error(exhandler.NewMethodNotAllowedError(c.Request.Method, AllowedMethods(engine, c.Request)...))
	})
}

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

// AllowedMethods returns the methods with a route matching the request path.
// gin does not report them itself.
func AllowedMethods(engine *gin.Engine, r *http.Request) []string {
	path := r.URL.Path
	if engine.UseRawPath && r.URL.RawPath != "" {
		path = r.URL.RawPath
	}

	found := map[string]bool{}
	for _, route := range engine.Routes() {
		if matchPath(route.Path, path) {
			found[route.Method] = true
		}
	}

	var allowed []string
	for _, m := range methods {
		if found[m] {
			allowed = append(allowed, m)
		}
	}
	return allowed
}

// matchPath reports whether a gin route pattern such as `/widgets/:id` or
// `/files/*path` matches the path.
func matchPath(pattern, path string) bool {
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	sp := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range pp {
		if strings.HasPrefix(seg, "*") {
			return true
		}
		if i >= len(sp) {
			return false
		}
		if strings.HasPrefix(seg, ":") {
			if sp[i] == "" {
				return false
			}
			continue
		}
		if seg != sp[i] {
			return false
		}
	}
	return len(pp) == len(sp)
}
