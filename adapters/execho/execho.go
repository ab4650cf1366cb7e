// Package execho connects a resolver to echo through its HTTPErrorHandler.
package execho

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/exhandler"
	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler returns an error handler which resolves errors into
// problem responses. Errors the resolver does not handle, including plain
// `*echo.HTTPError` values without a matching class, go to fallback, which
// defaults to the echo instance's DefaultHTTPErrorHandler.
//
//	e := echo.New()
//	e.HTTPErrorHandler = execho.HTTPErrorHandler(e, resolver, nil)
func HTTPErrorHandler(e *echo.Echo, resolver *exhandler.Resolver, fallback echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	if fallback == nil {
		fallback = e.DefaultHTTPErrorHandler
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if mapped := Translate(err, c); mapped != nil && resolver.Resolve(c.Response(), c.Request(), mapped) {
			return
		}
		fallback(err, c)
	}
}

// Translate maps echo's own errors to their classified equivalents. Errors
// which are not `*echo.HTTPError` are returned unchanged, while other HTTP
// errors map to nil so that echo keeps handling them.
func Translate(err error, c echo.Context) error {
	var be *echo.BindingError
	if errors.As(err, &be) {
		return &exhandler.RequestBindingError{Message: be.Error(), Err: err}
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	if he.Internal != nil && exhandler.ClassOf(he.Internal) != exhandler.ClassException {
		return he.Internal
	}

	switch he.Code {
	case http.StatusNotFound:
		return exhandler.NewNoRouteError(c.Request())
	case http.StatusMethodNotAllowed:
		allow, _ := c.Get(echo.ContextKeyHeaderAllow).(string)
		return exhandler.NewMethodNotAllowedError(c.Request().Method, allow)
	case http.StatusUnsupportedMediaType:
		return &exhandler.UnsupportedMediaTypeError{
			ContentType: c.Request().Header.Get(echo.HeaderContentType),
		}
	case http.StatusNotAcceptable:
		return &exhandler.NotAcceptableError{Accept: c.Request().Header.Get(echo.HeaderAccept)}
	case http.StatusRequestEntityTooLarge:
		return &exhandler.BodyNotReadableError{Err: err}
	}

	if he.Code >= http.StatusInternalServerError && he.Internal != nil {
		return he.Internal
	}
	return nil
}
