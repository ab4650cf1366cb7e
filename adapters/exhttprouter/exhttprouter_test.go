package exhttprouter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/exhandler"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) *httprouter.Router {
	resolver, err := exhandler.NewBuilder().Logger(zap.NewNop()).Build()
	require.NoError(t, err)

	r := httprouter.New()
	Register(r, resolver)
	r.GET("/widgets/:id", Handle(resolver, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
		return &exhandler.TypeMismatchError{Property: "id", Value: ps.ByName("id"), RequiredType: "int"}
	}))
	r.GET("/panic", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		panic("boom")
	})
	return r
}

func serve(t *testing.T, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	newRouter(t).ServeHTTP(w, req)
	return w
}

func TestHandle(t *testing.T) {
	w := serve(t, http.MethodGet, "/widgets/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestNotFound(t *testing.T) {
	w := serve(t, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	w := serve(t, http.MethodDelete, "/widgets/1")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Header().Get("Allow"), http.MethodGet)
}

func TestPanic(t *testing.T) {
	w := serve(t, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}
