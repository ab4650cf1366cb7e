package exhandler

import (
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Message keys resolved for every problem response.
const (
	DefaultPrefix = "default"
	TypeKey       = "type"
	TitleKey      = "title"
	DetailKey     = "detail"
	InstanceKey   = "instance"
)

// Response is the outcome of handling an error: the status, any extra
// headers and the body to serialize. A nil Body means no content.
type Response struct {
	Status int
	Header http.Header
	Body   any
}

// ExceptionHandler turns an error into a response. Implementations must be
// safe for concurrent use, as one instance serves every request that fails
// with a matching error.
type ExceptionHandler interface {
	Handle(err error, r *http.Request) *Response
}

// HandlerFunc adapts a function to the ExceptionHandler interface.
type HandlerFunc func(err error, r *http.Request) *Response

// Handle implements ExceptionHandler.
func (f HandlerFunc) Handle(err error, r *http.Request) *Response {
	return f(err, r)
}

// Settings are shared by all handlers of a resolver and passed to them when
// the resolver is built.
type Settings struct {
	// Messages provides the message templates.
	Messages MessageSource

	// Interpolator fills in message templates.
	Interpolator Interpolator

	// Logger receives the handled errors.
	Logger *zap.Logger

	// QualifiedNames selects `<full class name>.<key>` message keys instead of
	// `<simple class name>.<key>`.
	QualifiedNames bool

	// Verbose logs client errors at debug level including the error, instead
	// of at info level without it.
	Verbose bool

	// ClassOf classifies errors for logging. Resolvers set it to the
	// registry's ClassOf so type bindings apply. Nil uses ClassOf.
	ClassOf func(error) *Class
}

// Configurable is implemented by handlers which need the resolver's
// settings. Configure returns a configured copy and leaves the receiver
// unchanged.
type Configurable interface {
	Configure(s Settings) ExceptionHandler
}

// baseHandler holds the fixed status and implements logging common to all
// built-in handlers.
type baseHandler struct {
	status  int
	logger  *zap.Logger
	verbose bool
	classOf func(error) *Class
}

func newBaseHandler(status int, s Settings) baseHandler {
	return baseHandler{status: status, logger: s.Logger, verbose: s.Verbose, classOf: s.ClassOf}
}

// Status returns the status code this handler responds with.
func (h *baseHandler) Status() int {
	return h.status
}

// logException logs `METHOD /uri?query ~> status`. Server errors are logged
// at error level with the error, client errors at info level without it or
// at debug level with it when verbose.
func (h *baseHandler) logException(err error, r *http.Request) {
	defer func() {
		// Logging must never affect the response.
		_ = recover()
	}()

	msg := fmt.Sprintf("%d", h.status)
	class := ""
	if err != nil {
		if h.classOf != nil {
			class = h.classOf(err).Name()
		} else {
			class = ClassOf(err).Name()
		}
	}
	if r != nil && r.URL != nil {
		uri := r.URL.Path
		if r.URL.RawQuery != "" {
			uri += "?" + r.URL.RawQuery
		}
		msg = fmt.Sprintf("%s %s ~> %d", r.Method, uri, h.status)

		if span := trace.SpanFromContext(r.Context()); span.IsRecording() && err != nil {
			span.RecordError(err)
			if h.status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(h.status))
			}
		}
	}

	logger := loggerOrGlobal(h.logger)
	switch {
	case h.status >= 500:
		logger.Error(msg, zap.String("class", class), zap.Error(err), zap.Stack("stacktrace"))
	case h.verbose:
		logger.Debug(msg, zap.String("class", class), zap.Error(err))
	default:
		logger.Info(msg, zap.String("class", class))
	}
}

// StatusHandler responds with a fixed status and no body.
type StatusHandler struct {
	baseHandler
}

// NewStatusHandler creates a handler responding with only the status.
func NewStatusHandler(status int) *StatusHandler {
	return &StatusHandler{baseHandler{status: status}}
}

// Configure implements Configurable.
func (h *StatusHandler) Configure(s Settings) ExceptionHandler {
	return &StatusHandler{newBaseHandler(h.status, s)}
}

// Handle implements ExceptionHandler.
func (h *StatusHandler) Handle(err error, r *http.Request) *Response {
	h.logException(err, r)
	return &Response{Status: h.status, Header: http.Header{}}
}

// MessageHandler builds an ErrorMessage by resolving the `type`, `title`,
// `detail` and `instance` templates for its class and interpolating them.
// Templates are looked up as `<class>.<key>` and then `default.<key>`.
type MessageHandler struct {
	baseHandler
	class        *Class
	messages     MessageSource
	interpolator Interpolator
	qualified    bool
}

// NewMessageHandler creates a message handler for the class responding with
// the given status. Its messages come from the resolver it is registered
// with.
func NewMessageHandler(class *Class, status int) *MessageHandler {
	return &MessageHandler{
		baseHandler: baseHandler{status: status},
		class:       class,
		qualified:   true,
	}
}

// Class returns the class whose messages this handler uses.
func (h *MessageHandler) Class() *Class {
	return h.class
}

// Configure implements Configurable.
func (h *MessageHandler) Configure(s Settings) ExceptionHandler {
	return h.configure(s)
}

func (h *MessageHandler) configure(s Settings) *MessageHandler {
	c := *h
	c.baseHandler = newBaseHandler(h.status, s)
	c.messages = s.Messages
	c.interpolator = s.Interpolator
	c.qualified = s.QualifiedNames
	return &c
}

// Handle implements ExceptionHandler.
func (h *MessageHandler) Handle(err error, r *http.Request) *Response {
	h.logException(err, r)
	return &Response{Status: h.status, Header: http.Header{}, Body: h.createMessage(err, r)}
}

func (h *MessageHandler) createMessage(err error, r *http.Request) *ErrorMessage {
	locale := RequestLocale(r)
	vars := templateVars(err, h.class, r, h.status)

	return &ErrorMessage{
		Type:     h.resolveMessage(TypeKey, locale, vars),
		Title:    h.resolveMessage(TitleKey, locale, vars),
		Status:   h.status,
		Detail:   h.resolveMessage(DetailKey, locale, vars),
		Instance: h.resolveMessage(InstanceKey, locale, vars),
	}
}

func (h *MessageHandler) resolveMessage(key string, locale language.Tag, vars map[string]any) string {
	template := h.template(key, locale)
	if template == "" {
		return ""
	}
	interpolator := h.interpolator
	if interpolator == nil {
		interpolator = NoOpInterpolator{}
	}
	return interpolator.Interpolate(template, vars)
}

// template returns the message template for the key, or "" if neither the
// class nor the default has one.
func (h *MessageHandler) template(key string, locale language.Tag) string {
	prefix := DefaultPrefix
	if h.class != nil {
		prefix = h.class.SimpleName()
		if h.qualified {
			prefix = h.class.Name()
		}
	}

	if h.messages != nil {
		if msg, ok := h.messages.Message(prefix+"."+key, locale); ok {
			return msg
		}
		if msg, ok := h.messages.Message(DefaultPrefix+"."+key, locale); ok {
			return msg
		}
	}

	loggerOrGlobal(h.logger).Info("No message found",
		zap.String("key", prefix+"."+key), zap.String("fallback", DefaultPrefix+"."+key))
	return ""
}

// AllowedMethodser is implemented by errors listing the methods a resource
// supports.
type AllowedMethodser interface {
	AllowedMethods() []string
}

// SupportedMediaTypeser is implemented by errors listing the media types a
// resource accepts.
type SupportedMediaTypeser interface {
	SupportedMediaTypes() []string
}

// HeaderHandler decorates another handler, adding an `Allow` header for
// errors implementing AllowedMethodser and an `Accept` header for errors
// implementing SupportedMediaTypeser. Headers are only set for non-empty
// lists.
type HeaderHandler struct {
	ExceptionHandler
}

// WithHeaders wraps a handler to add `Allow` and `Accept` headers.
func WithHeaders(h ExceptionHandler) *HeaderHandler {
	return &HeaderHandler{ExceptionHandler: h}
}

// Configure implements Configurable.
func (h *HeaderHandler) Configure(s Settings) ExceptionHandler {
	if c, ok := h.ExceptionHandler.(Configurable); ok {
		return &HeaderHandler{ExceptionHandler: c.Configure(s)}
	}
	return h
}

// Handle implements ExceptionHandler.
func (h *HeaderHandler) Handle(err error, r *http.Request) *Response {
	resp := h.ExceptionHandler.Handle(err, r)
	if resp == nil {
		return nil
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	if e, ok := err.(AllowedMethodser); ok {
		if methods := e.AllowedMethods(); len(methods) > 0 {
			resp.Header.Set("Allow", strings.Join(methods, ", "))
		}
	}
	if e, ok := err.(SupportedMediaTypeser); ok {
		if types := e.SupportedMediaTypes(); len(types) > 0 {
			resp.Header.Set("Accept", strings.Join(types, ", "))
		}
	}
	return resp
}
