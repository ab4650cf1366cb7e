package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"runtime/debug"
	"sync"

	"github.com/danielgtaylor/exhandler"
	"go.uber.org/zap"
)

// MaxLogBodyBytes logs at most this many bytes of any request body during a
// panic when using the recovery middleware. Defaults to 10KiB.
var MaxLogBodyBytes int64 = 10 * 1024

// PanicError carries a recovered panic value to the resolver. It has no
// class of its own, so it is handled like any other unclassified error. If
// the value is an error it is the cause, which lets a resolver with cause
// unwrapping enabled handle it by its class.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// bufferedReadCloser will read and buffer up to max bytes into buf. Additional
// reads bypass the buffer.
type bufferedReadCloser struct {
	reader io.ReadCloser
	buf    *bytes.Buffer
	max    int64
}

// Read data into p. Returns number of bytes read and an error, if any.
func (r *bufferedReadCloser) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)

	// If buffer isn't full, add to it.
	length := int64(r.buf.Len())
	if length < r.max {
		if length+int64(n) < r.max {
			r.buf.Write(p[:n])
		} else {
			r.buf.Write(p[:r.max-length])
		}
	}

	return
}

// Close the underlying reader.
func (r *bufferedReadCloser) Close() error {
	return r.reader.Close()
}

// Recoverer returns a middleware which turns panics into problem responses
// using the resolver. The panic and the request that caused it are logged
// with the contextual logger, see Logger. Panics with `http.ErrAbortHandler`
// are re-raised.
func Recoverer(resolver *exhandler.Resolver) func(http.Handler) http.Handler {
	bufPool := sync.Pool{
		New: func() any {
			return new(bytes.Buffer)
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var buf *bytes.Buffer

			// Keep a copy of the start of the body for logging.
			if r.Body != nil {
				buf = bufPool.Get().(*bytes.Buffer)
				buf.Reset()
				defer bufPool.Put(buf)

				r.Body = &bufferedReadCloser{reader: r.Body, buf: buf, max: MaxLogBodyBytes}
			}

			// Recovering comes *after* the above so the buffer is not returned
			// to the pool until after we print out its contents.
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				perr := &PanicError{Value: v, Stack: debug.Stack()}

				if buf != nil && buf.Len() != 0 {
					r.Body = io.NopCloser(buf)
				} else if r.Body != nil {
					r.Body = io.NopCloser(io.LimitReader(r.Body, MaxLogBodyBytes))
				}
				request, _ := httputil.DumpRequest(r, true)

				GetLogger(r.Context()).Error("Caught panic",
					zap.Error(perr),
					zap.ByteString("stack", perr.Stack),
					zap.String("http.request", string(request)),
				)

				if !resolver.Resolve(w, r, perr) {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
