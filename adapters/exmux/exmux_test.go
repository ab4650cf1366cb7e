package exmux

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/exhandler"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) *mux.Router {
	resolver, err := exhandler.NewBuilder().Logger(zap.NewNop()).Build()
	require.NoError(t, err)

	r := mux.NewRouter()
	Register(r, resolver)
	r.HandleFunc("/widgets/{id}", func(w http.ResponseWriter, r *http.Request) {}).Methods(http.MethodGet, http.MethodPut)
	return r
}

func TestNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nope", nil)
	newRouter(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/widgets/1", nil)
	newRouter(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, PUT", w.Header().Get("Allow"))
}
