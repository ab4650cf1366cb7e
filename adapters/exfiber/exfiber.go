// Package exfiber connects a resolver to fiber through its ErrorHandler.
// Fiber does not use `net/http`, so requests are converted with fiber's
// adaptor and responses are buffered before being copied to fasthttp.
package exfiber

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/danielgtaylor/exhandler"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// responseWriter buffers a response written by the resolver.
type responseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

// ErrorHandler returns a fiber error handler which resolves errors into
// problem responses. `*fiber.Error` values for 404 and 405 become
// NoRouteError and MethodNotAllowedError. Other fiber errors, and errors the
// resolver does not handle, go to fallback, which defaults to
// `fiber.DefaultErrorHandler`.
//
//	app := fiber.New(fiber.Config{
//		ErrorHandler: exfiber.ErrorHandler(resolver, nil),
//	})
func ErrorHandler(resolver *exhandler.Resolver, fallback fiber.ErrorHandler) fiber.ErrorHandler {
	if fallback == nil {
		fallback = fiber.DefaultErrorHandler
	}
	return func(c *fiber.Ctx, err error) error {
		req, cerr := adaptor.ConvertRequest(c, false)
		if cerr != nil {
			return fallback(c, err)
		}

		mapped := Translate(err, c, req)
		if mapped == nil {
			return fallback(c, err)
		}

		w := &responseWriter{header: http.Header{}}
		if !resolver.Resolve(w, req, mapped) {
			return fallback(c, err)
		}

		for k, values := range w.header {
			if k == fiber.HeaderContentLength {
				// Set by fasthttp from the body.
				continue
			}
			c.Set(k, values[0])
			for _, v := range values[1:] {
				c.Append(k, v)
			}
		}
		c.Status(w.status)
		return c.Send(w.body.Bytes())
	}
}

// Translate maps fiber's routing errors to their classified equivalents.
// Other `*fiber.Error` values map to nil.
func Translate(err error, c *fiber.Ctx, req *http.Request) error {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return err
	}
	switch fe.Code {
	case fiber.StatusNotFound:
		return exhandler.NewNoRouteError(req)
	case fiber.StatusMethodNotAllowed:
		return exhandler.NewMethodNotAllowedError(c.Method(), c.GetRespHeader(fiber.HeaderAllow))
	case fiber.StatusUnsupportedMediaType:
		return &exhandler.UnsupportedMediaTypeError{ContentType: c.Get(fiber.HeaderContentType)}
	}
	return nil
}
