// Package extest provides testing utilities for problem responses. It
// resolves errors against synthetic `http.Request` values and records the
// result with `httptest`.
package extest

import (
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"strings"

	"github.com/danielgtaylor/exhandler"
	"go.uber.org/zap/zaptest"
)

// TB is a subset of the `testing.TB` interface used by the test resolver and
// implemented by the `*testing.T` and `*testing.B` structs.
type TB interface {
	Helper()
	Log(args ...any)
	Logf(format string, args ...any)
	Errorf(format string, args ...any)
	Fail()
	Failed() bool
	FailNow()
	Name() string
	Cleanup(func())
}

// TestResolver is a resolver with additional methods specifically for
// testing.
type TestResolver struct {
	*exhandler.Resolver
	tb TB
}

// New builds a test resolver. Optionally takes a builder to customize the
// resolver; its logger is replaced with one writing to the test log.
func New(tb TB, builders ...*exhandler.Builder) *TestResolver {
	tb.Helper()
	b := exhandler.NewBuilder()
	if len(builders) > 0 {
		b = builders[0]
	}
	r, err := b.Logger(zaptest.NewLogger(tb)).Build()
	if err != nil {
		tb.Errorf("unable to build resolver: %v", err)
		tb.FailNow()
	}
	return &TestResolver{Resolver: r, tb: tb}
}

// Wrap returns a TestResolver wrapping the given resolver.
func Wrap(tb TB, r *exhandler.Resolver) *TestResolver {
	return &TestResolver{Resolver: r, tb: tb}
}

// NewRequest creates a request. Args, if provided, should be string headers
// like `Accept: application/xml` or an `io.Reader` for the request body.
// Anything else will panic.
func NewRequest(method, path string, args ...any) *http.Request {
	var b io.Reader
	for _, arg := range args {
		if reader, ok := arg.(io.Reader); ok {
			b = reader
			break
		} else if _, ok := arg.(string); ok {
			// do nothing
		} else {
			panic("unsupported argument type, expected string header or io.Reader body")
		}
	}

	req := httptest.NewRequest(method, path, b)
	for _, arg := range args {
		if s, ok := arg.(string); ok {
			name, value, _ := strings.Cut(s, ":")
			req.Header.Add(name, strings.TrimSpace(value))
		}
	}
	return req
}

// Resolve resolves err for a request built by NewRequest and reports whether
// a response was written.
func (t *TestResolver) Resolve(err error, method, path string, args ...any) (*httptest.ResponseRecorder, bool) {
	t.tb.Helper()
	req := NewRequest(method, path, args...)
	resp := httptest.NewRecorder()

	dump, _ := httputil.DumpRequest(req, false)
	t.tb.Logf("Resolving %v for request:\n%s", err, strings.TrimSpace(string(dump)))

	handled := t.Resolver.Resolve(resp, req, err)
	if !handled {
		t.tb.Log("Not handled")
		return resp, false
	}

	dump, _ = httputil.DumpResponse(resp.Result(), resp.Body.Len() > 0)
	t.tb.Log("Got response:\n" + strings.TrimSpace(string(dump)))
	return resp, true
}

// Do resolves err for a request, ignoring whether it was handled.
func (t *TestResolver) Do(err error, method, path string, args ...any) *httptest.ResponseRecorder {
	t.tb.Helper()
	resp, _ := t.Resolve(err, method, path, args...)
	return resp
}

// Get resolves err for a GET request.
func (t *TestResolver) Get(err error, path string, args ...any) *httptest.ResponseRecorder {
	t.tb.Helper()
	return t.Do(err, http.MethodGet, path, args...)
}

// Post resolves err for a POST request.
func (t *TestResolver) Post(err error, path string, args ...any) *httptest.ResponseRecorder {
	t.tb.Helper()
	return t.Do(err, http.MethodPost, path, args...)
}

// Decode unmarshals a recorded response body with the default format for
// its content type.
func Decode(resp *httptest.ResponseRecorder, v any) error {
	ct, _, err := mime.ParseMediaType(resp.Header().Get("Content-Type"))
	if err != nil {
		return err
	}
	f, ok := exhandler.DefaultFormats[ct]
	if !ok || f.Unmarshal == nil {
		return exhandler.ErrUnknownFormat
	}
	return f.Unmarshal(resp.Body.Bytes(), v)
}
