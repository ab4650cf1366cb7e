package exhandler

import (
	"fmt"
	"net/http"
	"strings"
)

// Built-in classes for errors raised by HTTP routing, binding and encoding.
// The default handlers map each of these to a status code.
var (
	ClassMethodNotAllowed       = NewClass("exhandler.MethodNotAllowed", ClassException)
	ClassMediaType              = NewClass("exhandler.MediaTypeException", ClassException)
	ClassUnsupportedMediaType   = NewClass("exhandler.UnsupportedMediaType", ClassMediaType)
	ClassNotAcceptable          = NewClass("exhandler.NotAcceptable", ClassMediaType)
	ClassRequestBinding         = NewClass("exhandler.RequestBinding", ClassException)
	ClassMissingParameter       = NewClass("exhandler.MissingParameter", ClassRequestBinding)
	ClassPropertyAccess         = NewClass("exhandler.PropertyAccess", ClassException)
	ClassTypeMismatch           = NewClass("exhandler.TypeMismatch", ClassPropertyAccess)
	ClassConversionNotSupported = NewClass("exhandler.ConversionNotSupported", ClassPropertyAccess)
	ClassMessageConversion      = NewClass("exhandler.MessageConversion", ClassException)
	ClassBodyNotReadable        = NewClass("exhandler.BodyNotReadable", ClassMessageConversion)
	ClassBodyNotWritable        = NewClass("exhandler.BodyNotWritable", ClassMessageConversion)
	ClassMissingPart            = NewClass("exhandler.MissingPart", ClassException)
	ClassValidation             = NewClass("exhandler.Validation", ClassException)
	ClassNoRoute                = NewClass("exhandler.NoRoute", ClassException)
)

// MethodNotAllowedError is raised when a route exists but does not support
// the request method.
type MethodNotAllowedError struct {
	Method    string
	Supported []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("request method '%s' not supported", e.Method)
}

func (e *MethodNotAllowedError) Class() *Class { return ClassMethodNotAllowed }

// AllowedMethods populates the `Allow` response header.
func (e *MethodNotAllowedError) AllowedMethods() []string { return e.Supported }

// UnsupportedMediaTypeError is raised when the request body's content type
// cannot be consumed.
type UnsupportedMediaTypeError struct {
	ContentType string
	Supported   []string
}

func (e *UnsupportedMediaTypeError) Error() string {
	if e.ContentType == "" {
		return "content type not specified"
	}
	return fmt.Sprintf("content type '%s' not supported", e.ContentType)
}

func (e *UnsupportedMediaTypeError) Class() *Class { return ClassUnsupportedMediaType }

// SupportedMediaTypes populates the `Accept` response header.
func (e *UnsupportedMediaTypeError) SupportedMediaTypes() []string { return e.Supported }

// NotAcceptableError is raised when no representation acceptable to the
// client can be produced.
type NotAcceptableError struct {
	Accept    string
	Supported []string
}

func (e *NotAcceptableError) Error() string {
	return fmt.Sprintf("could not find acceptable representation for '%s'", e.Accept)
}

func (e *NotAcceptableError) Class() *Class { return ClassNotAcceptable }

// RequestBindingError is a generic failure to bind request data.
type RequestBindingError struct {
	Message string
	Err     error
}

func (e *RequestBindingError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *RequestBindingError) Unwrap() error { return e.Err }

func (e *RequestBindingError) Class() *Class { return ClassRequestBinding }

// MissingParameterError is raised when a required query, path or header
// parameter is absent.
type MissingParameterError struct {
	Name     string
	Location string
	Type     string
}

func (e *MissingParameterError) Error() string {
	where := e.Location
	if where == "" {
		where = "request"
	}
	if e.Type == "" {
		return fmt.Sprintf("required %s parameter '%s' is not present", where, e.Name)
	}
	return fmt.Sprintf("required %s parameter '%s' of type %s is not present", where, e.Name, e.Type)
}

func (e *MissingParameterError) Class() *Class { return ClassMissingParameter }

// TypeMismatchError is raised when a value cannot be converted to the
// required type, e.g. `?limit=abc` for an integer.
type TypeMismatchError struct {
	Property     string
	Value        any
	RequiredType string
	Err          error
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("failed to convert value '%v' to required type '%s'", e.Value, e.RequiredType)
	if e.Property != "" {
		msg += fmt.Sprintf(" for property '%s'", e.Property)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error { return e.Err }

func (e *TypeMismatchError) Class() *Class { return ClassTypeMismatch }

// ConversionNotSupportedError is raised when no converter exists for a
// property type. It indicates a server-side programming error.
type ConversionNotSupportedError struct {
	Property     string
	RequiredType string
}

func (e *ConversionNotSupportedError) Error() string {
	return fmt.Sprintf("no converter found for property '%s' of type '%s'", e.Property, e.RequiredType)
}

func (e *ConversionNotSupportedError) Class() *Class { return ClassConversionNotSupported }

// BodyNotReadableError is raised when the request body cannot be decoded.
type BodyNotReadableError struct {
	Err error
}

func (e *BodyNotReadableError) Error() string {
	if e.Err == nil {
		return "request body is not readable"
	}
	return "request body is not readable: " + e.Err.Error()
}

func (e *BodyNotReadableError) Unwrap() error { return e.Err }

func (e *BodyNotReadableError) Class() *Class { return ClassBodyNotReadable }

// BodyNotWritableError is raised when a response body cannot be encoded.
type BodyNotWritableError struct {
	Err error
}

func (e *BodyNotWritableError) Error() string {
	if e.Err == nil {
		return "response body is not writable"
	}
	return "response body is not writable: " + e.Err.Error()
}

func (e *BodyNotWritableError) Unwrap() error { return e.Err }

func (e *BodyNotWritableError) Class() *Class { return ClassBodyNotWritable }

// MissingPartError is raised when a required multipart part is absent.
type MissingPartError struct {
	Part string
}

func (e *MissingPartError) Error() string {
	return fmt.Sprintf("required request part '%s' is not present", e.Part)
}

func (e *MissingPartError) Class() *Class { return ClassMissingPart }

// NoRouteError is raised when no route matches the request.
type NoRouteError struct {
	Method string
	Path   string
}

// NewNoRouteError creates a NoRouteError for the given request.
func NewNoRouteError(r *http.Request) *NoRouteError {
	return &NoRouteError{Method: r.Method, Path: r.URL.Path}
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no route found for %s %s", e.Method, e.Path)
}

func (e *NoRouteError) Class() *Class { return ClassNoRoute }

// NewMethodNotAllowedError creates a MethodNotAllowedError from an `Allow`
// style list, accepting either separate values or comma-joined ones.
func NewMethodNotAllowedError(method string, allow ...string) *MethodNotAllowedError {
	supported := make([]string, 0, len(allow))
	for _, a := range allow {
		for _, m := range strings.Split(a, ",") {
			if m = strings.TrimSpace(m); m != "" {
				supported = append(supported, m)
			}
		}
	}
	return &MethodNotAllowedError{Method: method, Supported: supported}
}
