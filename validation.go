package exhandler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

// Violation is a single constraint violation. Path is the dotted property
// path relative to the validated object, e.g. `address.street` or
// `items[2].name`. An empty path (or one with only empty segments) denotes an
// object-level violation such as a cross-field rule.
type Violation struct {
	Path    string
	Value   any
	Message string
}

// ValidationError is raised when a request object fails validation. The
// violations keep the order in which they were found.
type ValidationError struct {
	Object     string
	Violations []Violation
}

// Add appends a violation.
func (e *ValidationError) Add(path string, value any, message string) {
	e.Violations = append(e.Violations, Violation{Path: path, Value: value, Message: message})
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Path == "" {
			msgs = append(msgs, v.Message)
			continue
		}
		msgs = append(msgs, v.Path+": "+v.Message)
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

func (e *ValidationError) Class() *Class { return ClassValidation }

// TemplateVars exposes the violation count to message templates as
// `ex.count`.
func (e *ValidationError) TemplateVars() map[string]any {
	return map[string]any{
		"count":  len(e.Violations),
		"object": e.Object,
	}
}

// NewValidationError converts the errors returned by go-playground's
// validator into a ValidationError. If a translator is given, messages are
// translated with it. Errors of any other kind are returned unchanged.
//
// Struct-level rules reported with an empty field name become object-level
// violations.
func NewValidationError(err error, trans ut.Translator) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		ns := fe.Namespace()
		if out.Object == "" {
			if i := strings.IndexByte(ns, '.'); i >= 0 {
				out.Object = ns[:i]
			}
		}
		// Strip the top-level struct name.
		path := ""
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			path = ns[i+1:]
		}

		var msg string
		if trans != nil {
			msg = fe.Translate(trans)
		} else if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the '%s=%s' rule", fe.Tag(), fe.Param())
		} else {
			msg = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		}

		var value any
		if fe.Field() != "" {
			value = fe.Value()
		}
		out.Add(path, value, msg)
	}
	return out
}

// ValidationHandler builds a ValidationErrorMessage with one entry per
// violation of a ValidationError, appended in order. Other errors get the
// plain message body.
type ValidationHandler struct {
	*MessageHandler
}

// NewValidationHandler creates a validation handler for the class. It is
// usually registered with http.StatusUnprocessableEntity.
func NewValidationHandler(class *Class, status int) *ValidationHandler {
	return &ValidationHandler{MessageHandler: NewMessageHandler(class, status)}
}

// Configure implements Configurable.
func (h *ValidationHandler) Configure(s Settings) ExceptionHandler {
	return &ValidationHandler{MessageHandler: h.MessageHandler.configure(s)}
}

// Handle implements ExceptionHandler.
func (h *ValidationHandler) Handle(err error, r *http.Request) *Response {
	h.logException(err, r)

	msg := NewValidationErrorMessage(h.createMessage(err, r))
	var verr *ValidationError
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			if field := leafProperty(v.Path); field != "" {
				msg.AddFieldError(field, rejectedString(v.Value), v.Message)
			} else {
				msg.AddError(v.Message)
			}
		}
	}

	return &Response{Status: h.status, Header: http.Header{}, Body: msg}
}

// leafProperty returns the name of the last non-empty segment of a property
// path, without any index suffix. It returns "" for object-level paths.
func leafProperty(path string) string {
	segments := strings.Split(path, ".")
	for i := len(segments) - 1; i >= 0; i-- {
		name := segments[i]
		if j := strings.IndexByte(name, '['); j >= 0 {
			name = name[:j]
		}
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return ""
}

// rejectedString converts a rejected value to a string. Typed conversion is
// tried first, falling back to the default formatting.
func rejectedString(v any) *string {
	if v == nil {
		return nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		s = fmt.Sprint(v)
	}
	return &s
}
