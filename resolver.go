package exhandler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Resolver turns errors raised while handling a request into problem
// responses. Create one with a Builder. It is read-only and safe for
// concurrent use.
type Resolver struct {
	registry   *Registry
	serializer *serializer
	logger     *zap.Logger
	metrics    *metrics
}

// NewResolver builds a resolver with the default configuration.
func NewResolver() *Resolver {
	r, err := NewBuilder().Build()
	if err != nil {
		// The defaults always have a format for the default content type.
		panic(err)
	}
	return r
}

// Registry returns the handler registry.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// ErrNoResponse is returned when a handler gives no response for an error.
var ErrNoResponse = errors.New("exception handler returned no response")

// Handle resolves the handler for err and builds the response without
// writing it. It returns ErrNoHandlerFound if no handler matches and the
// registry skips unmatched errors, or ErrNoResponse if the handler returns
// nil.
func (r *Resolver) Handle(err error, req *http.Request) (*Response, error) {
	res, rerr := r.registry.Resolve(err)
	if rerr != nil {
		return nil, rerr
	}

	r.logger.Debug("Handling exception",
		zap.String("class", r.registry.ClassOf(res.Err).Name()),
		zap.Stringer("handler_class", res.Class),
	)
	resp := res.Handler.Handle(res.Err, req)
	if resp == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoResponse, r.registry.ClassOf(res.Err).Name())
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	return resp, nil
}

// Resolve handles err and writes the response. It returns false if it did
// not write anything, either because no handler matched or because the
// response could not be serialized. In that case the caller should fall back
// to its own error handling.
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request, err error) bool {
	resp, herr := r.Handle(err, req)
	if herr != nil {
		msg := "No exception handler found to handle exception"
		if errors.Is(herr, ErrNoResponse) {
			msg = "Exception handler returned no response"
		}
		r.logger.Warn(msg, zap.String("class", r.registry.ClassOf(err).Name()))
		return false
	}

	if werr := r.Write(w, req, resp); werr != nil {
		r.logger.Error("Failed to process error response",
			zap.Int("status", resp.Status), zap.Error(werr))
		return false
	}

	if r.metrics != nil {
		r.metrics.observe(resp.Status, r.registry.ClassOf(err))
	}
	return true
}

// Write serializes a response built by Handle, negotiating the content type
// from the request's `Accept` header. If encoding fails, nothing has been
// written to w.
func (r *Resolver) Write(w http.ResponseWriter, req *http.Request, resp *Response) error {
	if err := r.serializer.write(w, req, resp); err != nil {
		return fmt.Errorf("unable to write %d response: %w", resp.Status, err)
	}
	return nil
}

// ErrorHandlerFunc is an HTTP handler which may fail with an error.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap converts an error-returning handler into an `http.Handler`. Errors
// are resolved into problem responses; if that is not possible a plain 500
// is sent.
func (r *Resolver) Wrap(h ErrorHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if !r.Resolve(w, req, err) {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}
	})
}

// NotFoundHandler responds to unmatched routes with a NoRouteError problem.
func (r *Resolver) NotFoundHandler() http.Handler {
	return r.Wrap(func(w http.ResponseWriter, req *http.Request) error {
		return NewNoRouteError(req)
	})
}

// MethodNotAllowedHandler responds with a MethodNotAllowedError problem,
// taking the supported methods from the `Allow` header a router may already
// have set.
func (r *Resolver) MethodNotAllowedHandler() http.Handler {
	return r.Wrap(func(w http.ResponseWriter, req *http.Request) error {
		return NewMethodNotAllowedError(req.Method, w.Header().Values("Allow")...)
	})
}

type metrics struct {
	problems *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		problems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exhandler",
			Name:      "problems_total",
			Help:      "Problem responses written, by status code and error class.",
		}, []string{"status", "class"}),
	}
	if err := reg.Register(m.problems); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.problems = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return m, nil
}

func (m *metrics) observe(status int, class *Class) {
	m.problems.WithLabelValues(strconv.Itoa(status), class.Name()).Inc()
}
