package middleware

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

var logContextKey contextKey = "exhandler-middleware-logger"
var logConfig zap.Config

// LogLevel sets the current Zap root logger's level when using the logging
// middleware. This can be changed dynamically at runtime.
var LogLevel *zap.AtomicLevel

// LogTracePrefix is used to prefix OpenTelemetry trace and span ID key names
// in emitted log message tag names.
var LogTracePrefix = "otel."

// NewDefaultLogger returns a new low-level `*zap.Logger` instance. If the
// current terminal is a TTY, it will try to use colored output automatically.
func NewDefaultLogger() (*zap.Logger, error) {
	if LogLevel != nil {
		// Only set up the config once. The level will control all loggers.
		return logConfig.Build()
	}

	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		logConfig = zap.NewProductionConfig()
	}
	logConfig.EncoderConfig.EncodeTime = iso8601UTCTimeEncoder
	LogLevel = &logConfig.Level
	return logConfig.Build()
}

// NewLogger is a function that returns a new logger instance to use with
// the logger middleware.
var NewLogger func() (*zap.Logger, error) = NewDefaultLogger

// A UTC variation of ZapCore.ISO8601TimeEncoder with millisecond precision
func iso8601UTCTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Logger creates a new middleware to set a tagged `*zap.Logger` in the
// request context. It debug logs request info and logs server errors at
// error level.
func Logger(next http.Handler) http.Handler {
	l, err := NewLogger()
	if err != nil {
		panic(err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		contextLog := l.With(
			zap.String("http.version", r.Proto),
			zap.String("http.method", r.Method),
			zap.String("http.url", r.URL.String()),
			zap.String("network.client.ip", r.RemoteAddr),
		)

		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			// We have a span context, so log its info to help with correlation.
			contextLog = contextLog.With(
				zap.String(LogTracePrefix+"trace_id", sc.TraceID().String()),
				zap.String(LogTracePrefix+"span_id", sc.SpanID().String()),
			)
		}

		r = r.WithContext(context.WithValue(r.Context(), logContextKey, contextLog))
		nw := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(nw, r)

		fields := []zap.Field{
			zap.Int("http.status_code", nw.status),
			zap.Duration("duration", time.Since(start)),
		}
		if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil {
			// The route pattern isn't filled out until *after* the handler runs.
			fields = append(fields, zap.String("http.template", chiCtx.RoutePattern()))
		}

		if nw.status < 500 {
			contextLog.Debug("Request", fields...)
		} else {
			contextLog.Error("Request", fields...)
		}
	})
}

// GetLogger returns the contextual logger for the current request. If no
// logger is present, it returns a no-op logger so no nil check is required.
func GetLogger(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(logContextKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// WithLogger returns a copy of ctx carrying the logger.
func WithLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, logContextKey, log)
}
