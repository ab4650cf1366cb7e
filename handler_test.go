package exhandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/language"
)

var classIllegalArgument = NewClass("example.IllegalArgument", ClassException)

type illegalArgumentError struct{}

func (illegalArgumentError) Error() string { return "illegal argument" }
func (illegalArgumentError) Class() *Class { return classIllegalArgument }

func testSettings(logger *zap.Logger, messages MessageSource) Settings {
	return Settings{
		Messages:       messages,
		Interpolator:   NewExprInterpolator(logger),
		Logger:         logger,
		QualifiedNames: true,
	}
}

func TestMessageHandlerTemplate(t *testing.T) {
	messages := StaticMessages{"example.IllegalArgument.detail": "Bad input: {req.path}"}
	h := NewMessageHandler(classIllegalArgument, http.StatusBadRequest).
		Configure(testSettings(zap.NewNop(), Chain{messages, DefaultMessages()}))

	r := httptest.NewRequest(http.MethodPost, "/widgets/7", nil)
	resp := h.Handle(illegalArgumentError{}, r)

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	msg := resp.Body.(*ErrorMessage)
	assert.Equal(t, http.StatusBadRequest, msg.Status)
	assert.Equal(t, "Bad input: /widgets/7", msg.Detail)
	assert.Equal(t, "about:blank", msg.Type)
	assert.Equal(t, "Bad Request", msg.Title)
	assert.Empty(t, msg.Instance)
}

func TestMessageHandlerFallback(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	messages := StaticMessages{"default.title": "Default title"}
	h := NewMessageHandler(classIllegalArgument, http.StatusBadRequest).
		Configure(testSettings(zap.New(core), messages)).(*MessageHandler)

	assert.Equal(t, "Default title", h.template(TitleKey, language.English))
	assert.Equal(t, "", h.template(DetailKey, language.English))
	assert.Equal(t, 1, logs.FilterMessage("No message found").Len())
}

func TestMessageHandlerSimpleNames(t *testing.T) {
	messages := StaticMessages{
		"IllegalArgument.title":         "simple",
		"example.IllegalArgument.title": "qualified",
	}
	settings := testSettings(zap.NewNop(), messages)

	h := NewMessageHandler(classIllegalArgument, http.StatusBadRequest).Configure(settings).(*MessageHandler)
	assert.Equal(t, "qualified", h.template(TitleKey, language.English))

	settings.QualifiedNames = false
	h = NewMessageHandler(classIllegalArgument, http.StatusBadRequest).Configure(settings).(*MessageHandler)
	assert.Equal(t, "simple", h.template(TitleKey, language.English))
}

func TestMessageHandlerLocale(t *testing.T) {
	h := NewMessageHandler(ClassNoRoute, http.StatusNotFound).
		Configure(testSettings(zap.NewNop(), DefaultMessages()))

	r := httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.Header.Set("Accept-Language", "de-DE")
	msg := h.Handle(NewNoRouteError(r), r).Body.(*ErrorMessage)
	assert.Equal(t, "Nicht gefunden", msg.Title)
	assert.Equal(t, "Keine Ressource gefunden für GET /nope.", msg.Detail)
}

func TestMessageHandlerUnconfigured(t *testing.T) {
	// Without settings there are no messages, but a response is still built.
	h := NewMessageHandler(classIllegalArgument, http.StatusBadRequest)
	h.logger = zap.NewNop()
	resp := h.Handle(illegalArgumentError{}, nil)
	assert.Equal(t, &ErrorMessage{Status: http.StatusBadRequest}, resp.Body)
	assert.Same(t, classIllegalArgument, h.Class())
}

func TestConfigureLeavesOriginal(t *testing.T) {
	h := NewMessageHandler(classIllegalArgument, http.StatusBadRequest)
	c := h.Configure(testSettings(zap.NewNop(), DefaultMessages())).(*MessageHandler)
	assert.NotSame(t, h, c)
	assert.Nil(t, h.messages)
	assert.NotNil(t, c.messages)
}

func TestStatusHandler(t *testing.T) {
	h := NewStatusHandler(http.StatusServiceUnavailable).Configure(testSettings(zap.NewNop(), nil))
	resp := h.Handle(errors.New("down"), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Nil(t, resp.Body)
	assert.Equal(t, http.StatusServiceUnavailable, h.(*StatusHandler).Status())
}

func TestHeaderHandler(t *testing.T) {
	h := WithHeaders(NewMessageHandler(ClassMethodNotAllowed, http.StatusMethodNotAllowed)).
		Configure(testSettings(zap.NewNop(), DefaultMessages()))

	r := httptest.NewRequest(http.MethodDelete, "/widgets", nil)
	resp := h.Handle(&MethodNotAllowedError{Method: http.MethodDelete, Supported: []string{"GET", "POST"}}, r)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status)
	assert.Equal(t, "GET, POST", resp.Header.Get("Allow"))
	assert.Equal(t, "The DELETE method is not supported by this resource.", resp.Body.(*ErrorMessage).Detail)

	resp = h.Handle(&MethodNotAllowedError{Method: http.MethodDelete}, r)
	assert.Empty(t, resp.Header.Values("Allow"))

	resp = h.Handle(&UnsupportedMediaTypeError{ContentType: "text/plain", Supported: []string{"application/json", "application/xml"}}, r)
	assert.Equal(t, "application/json, application/xml", resp.Header.Get("Accept"))
}

func TestHeaderHandlerFunc(t *testing.T) {
	h := WithHeaders(HandlerFunc(func(err error, r *http.Request) *Response {
		return &Response{Status: http.StatusMethodNotAllowed}
	}))
	// Not configurable, so configuring returns the same handler.
	assert.Same(t, h, h.Configure(Settings{}))

	resp := h.Handle(NewMethodNotAllowedError("PUT", "GET, HEAD"), nil)
	assert.Equal(t, "GET, HEAD", resp.Header.Get("Allow"))
}

func TestLogging(t *testing.T) {
	for _, item := range []struct {
		name    string
		status  int
		verbose bool
		level   zapcore.Level
		withErr bool
	}{
		{"server error", http.StatusInternalServerError, false, zapcore.ErrorLevel, true},
		{"client error", http.StatusBadRequest, false, zapcore.InfoLevel, false},
		{"client error verbose", http.StatusBadRequest, true, zapcore.DebugLevel, true},
	} {
		t.Run(item.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			settings := testSettings(zap.New(core), nil)
			settings.Verbose = item.verbose
			h := NewStatusHandler(item.status).Configure(settings)

			r := httptest.NewRequest(http.MethodGet, "/widgets/7?full=true", nil)
			h.Handle(illegalArgumentError{}, r)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, item.level, entries[0].Level)
			assert.Contains(t, entries[0].Message, "GET /widgets/7?full=true ~> ")
			assert.Equal(t, "example.IllegalArgument", entries[0].ContextMap()["class"])
			_, hasErr := entries[0].ContextMap()["error"]
			assert.Equal(t, item.withErr, hasErr)
		})
	}
}

func TestLoggingRecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	ctx, span := tp.Tracer("test").Start(context.Background(), "request")

	h := NewStatusHandler(http.StatusInternalServerError).Configure(testSettings(zap.NewNop(), nil))
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	h.Handle(errors.New("boom"), r)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestHeaderHandlerNilResponse(t *testing.T) {
	h := WithHeaders(HandlerFunc(func(err error, r *http.Request) *Response {
		return nil
	}))
	assert.Nil(t, h.Handle(NewMethodNotAllowedError("PUT", "GET"), httptest.NewRequest(http.MethodPut, "/", nil)))
}

func TestLoggingUsesTypeBindings(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r, err := NewBuilder().
		Logger(zap.New(core)).
		BindType(&strconv.NumError{}, ClassTypeMismatch).
		Build()
	require.NoError(t, err)

	_, err = strconv.Atoi("seven")
	require.True(t, r.Resolve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/widgets/7", nil), err))

	entries := logs.FilterMessage("GET /widgets/7 ~> 400").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "exhandler.TypeMismatch", entries[0].ContextMap()["class"])
}
