package exhandler

import (
	"errors"
	"net/http"
	"reflect"
)

// ErrNoHandlerFound is returned when no handler is registered for an error's
// class or any of its parents and the registry is set to UnmatchedSkip.
var ErrNoHandlerFound = errors.New("no exception handler found")

// UnmatchedPolicy decides what happens to errors without a matching handler.
type UnmatchedPolicy int

const (
	// UnmatchedSkip reports ErrNoHandlerFound, leaving the error to the next
	// error handler of the hosting framework.
	UnmatchedSkip UnmatchedPolicy = iota

	// UnmatchedInternalError responds with a bare 500 status.
	UnmatchedInternalError
)

func (p UnmatchedPolicy) String() string {
	switch p {
	case UnmatchedSkip:
		return "skip"
	case UnmatchedInternalError:
		return "internal-error"
	}
	return "unknown"
}

// Registry maps classes to handlers. It is built once by a Builder and is
// read-only afterwards, so it is safe for concurrent use without locking.
type Registry struct {
	handlers map[*Class]ExceptionHandler
	types    map[reflect.Type]*Class
	policy   UnmatchedPolicy
	unwrap   bool
	fallback ExceptionHandler
}

// Policy returns the active unmatched policy.
func (r *Registry) Policy() UnmatchedPolicy {
	return r.policy
}

// Handler returns the handler registered for exactly this class.
func (r *Registry) Handler(class *Class) (ExceptionHandler, bool) {
	h, ok := r.handlers[class]
	return h, ok
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	return len(r.handlers)
}

// ClassOf returns the class of err, honoring type bindings for errors which
// do not implement Classifier.
func (r *Registry) ClassOf(err error) *Class {
	if c, ok := err.(Classifier); ok {
		if cls := c.Class(); cls != nil {
			return cls
		}
	}
	if cls, ok := r.types[reflect.TypeOf(err)]; ok {
		return cls
	}
	return ClassException
}

// lookup walks from the class up through its parents and returns the first
// registered handler.
func (r *Registry) lookup(class *Class) (ExceptionHandler, *Class, bool) {
	for c := class; c != nil; c = c.parent {
		if h, ok := r.handlers[c]; ok {
			return h, c, true
		}
	}
	return nil, nil, false
}

// isRegistered reports whether a handler exists for the class chain below
// the root. The root Exception mapping is ignored so that unwrapping can
// find a specific cause behind a generic wrapper.
func (r *Registry) isRegistered(class *Class) bool {
	for c := class; c != nil; c = c.parent {
		if c == ClassException {
			return false
		}
		if _, ok := r.handlers[c]; ok {
			return true
		}
	}
	return false
}

// Resolution is the outcome of a successful registry lookup.
type Resolution struct {
	// Handler to invoke.
	Handler ExceptionHandler

	// Err is the error to pass to the handler. It is a cause of the original
	// error when unwrapping applied.
	Err error

	// Class is the class the handler is registered for, or nil for the
	// unmatched fallback.
	Class *Class
}

// Resolve finds the handler for err by walking its class hierarchy from the
// most specific class up. With no match it returns ErrNoHandlerFound or the
// fallback 500 handler, depending on the policy.
func (r *Registry) Resolve(err error) (Resolution, error) {
	target := err
	if r.unwrap {
		target = r.unwrapCause(err)
	}

	if h, c, ok := r.lookup(r.ClassOf(target)); ok {
		return Resolution{Handler: h, Err: target, Class: c}, nil
	}

	if r.policy == UnmatchedInternalError && r.fallback != nil {
		return Resolution{Handler: r.fallback, Err: err}, nil
	}
	return Resolution{Err: err}, ErrNoHandlerFound
}

// unwrapCause replaces err by its first cause with a registered class when
// err itself has none. Unwrapping stops at a nil cause, at a cause already
// seen, or at a cause of the same declared class as the previous one. Errors
// without a declared class, such as those from fmt.Errorf, are walked
// through.
func (r *Registry) unwrapCause(err error) error {
	if err == nil || r.isRegistered(r.ClassOf(err)) {
		return err
	}

	seen := map[error]struct{}{}
	prev := err
	prevClass := r.ClassOf(err)
	for {
		if hashable(prev) {
			seen[prev] = struct{}{}
		}
		cause := errors.Unwrap(prev)
		if cause == nil {
			return err
		}
		if hashable(cause) {
			if _, ok := seen[cause]; ok {
				return err
			}
		}
		class := r.ClassOf(cause)
		if class == prevClass && class != ClassException {
			return err
		}
		if r.isRegistered(class) {
			return cause
		}
		prev, prevClass = cause, class
	}
}

// hashable reports whether err can be used as a map key.
func hashable(err error) bool {
	return err != nil && reflect.TypeOf(err).Comparable()
}

// defaultHandlers returns the built-in mappings for the framework errors.
func defaultHandlers() map[*Class]ExceptionHandler {
	return map[*Class]ExceptionHandler{
		ClassMethodNotAllowed:       WithHeaders(NewMessageHandler(ClassMethodNotAllowed, http.StatusMethodNotAllowed)),
		ClassUnsupportedMediaType:   WithHeaders(NewMessageHandler(ClassUnsupportedMediaType, http.StatusUnsupportedMediaType)),
		ClassNotAcceptable:          NewMessageHandler(ClassNotAcceptable, http.StatusNotAcceptable),
		ClassMissingParameter:       NewMessageHandler(ClassMissingParameter, http.StatusBadRequest),
		ClassRequestBinding:         NewMessageHandler(ClassRequestBinding, http.StatusBadRequest),
		ClassConversionNotSupported: NewMessageHandler(ClassConversionNotSupported, http.StatusInternalServerError),
		ClassTypeMismatch:           NewMessageHandler(ClassTypeMismatch, http.StatusBadRequest),
		ClassBodyNotReadable:        NewMessageHandler(ClassBodyNotReadable, http.StatusUnprocessableEntity),
		ClassBodyNotWritable:        NewMessageHandler(ClassBodyNotWritable, http.StatusInternalServerError),
		ClassMissingPart:            NewMessageHandler(ClassMissingPart, http.StatusBadRequest),
		ClassValidation:             NewValidationHandler(ClassValidation, http.StatusUnprocessableEntity),
		ClassNoRoute:                NewMessageHandler(ClassNoRoute, http.StatusNotFound),
		ClassException:              NewMessageHandler(ClassException, http.StatusInternalServerError),
	}
}
