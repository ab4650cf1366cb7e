package exgin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/exhandler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEngine(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	resolver, err := exhandler.NewBuilder().Logger(zap.NewNop()).Build()
	require.NoError(t, err)

	r := gin.New()
	Register(r, resolver)
	r.GET("/widgets/:id", func(c *gin.Context) {
		_ = c.Error(&exhandler.TypeMismatchError{Property: "id", Value: c.Param("id"), RequiredType: "int"})
	})
	r.PUT("/widgets/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/files/*path", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/ok", func(c *gin.Context) {
		_ = c.Error(&exhandler.MissingPartError{Part: "ignored"})
		c.String(http.StatusOK, "fine")
	})
	return r
}

func TestHandlerError(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/widgets/abc", nil)
	newEngine(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestWrittenResponseKept(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ok", nil)
	newEngine(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fine", w.Body.String())
}

func TestNoRoute(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nope", nil)
	newEngine(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"status":404`)
}

func TestNoMethod(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/widgets/1", nil)
	newEngine(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, PUT", w.Header().Get("Allow"))
	assert.Contains(t, w.Body.String(), "The POST method is not supported")
}

func TestAllowedMethods(t *testing.T) {
	engine := newEngine(t)
	for path, expected := range map[string][]string{
		"/widgets/1":     {http.MethodGet, http.MethodPut},
		"/widgets/1/":    {http.MethodGet, http.MethodPut},
		"/files/a/b.txt": {http.MethodGet},
		"/ok":            {http.MethodGet},
		"/widgets":       nil,
		"/widgets/1/x":   nil,
	} {
		req, _ := http.NewRequest(http.MethodPost, path, nil)
		assert.Equal(t, expected, AllowedMethods(engine, req), path)
	}
}
