package exhandler

import (
	"encoding/xml"
	"net/http"
	"strings"
)

// ErrorMessage is an RFC 7807 problem details body. String fields are never
// nil; they default to the empty string and are omitted from the serialized
// form when empty. Status is always serialized.
type ErrorMessage struct {
	XMLName xml.Name `json:"-" yaml:"-" msgpack:"-" toml:"-" xml:"urn:ietf:rfc:7807 problem"`

	// Type is a URI reference identifying the problem type.
	Type string `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty" toml:"type,omitempty" xml:"type,omitempty"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title,omitempty" yaml:"title,omitempty" msgpack:"title,omitempty" toml:"title,omitempty" xml:"title,omitempty"`

	// Status is the HTTP status code, copied into the body for client
	// convenience.
	Status int `json:"status" yaml:"status" msgpack:"status" toml:"status" xml:"status"`

	// Detail is an explanation specific to this occurrence of the problem.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty" msgpack:"detail,omitempty" toml:"detail,omitempty" xml:"detail,omitempty"`

	// Instance is a URI reference identifying this occurrence of the problem.
	Instance string `json:"instance,omitempty" yaml:"instance,omitempty" msgpack:"instance,omitempty" toml:"instance,omitempty" xml:"instance,omitempty"`
}

// Error returns the detail, falling back to the title, so that an
// ErrorMessage can travel as an `error`.
func (m *ErrorMessage) Error() string {
	if m.Detail != "" {
		return m.Detail
	}
	if m.Title != "" {
		return m.Title
	}
	return http.StatusText(m.Status)
}

// GetStatus returns the HTTP status code.
func (m *ErrorMessage) GetStatus() int {
	return m.Status
}

// ContentType maps a negotiated content type to its problem variant.
func (m *ErrorMessage) ContentType(ct string) string {
	return problemContentType(ct)
}

func problemContentType(ct string) string {
	switch ct {
	case "application/json":
		return "application/problem+json"
	case "application/xml", "text/xml":
		return "application/problem+xml"
	case "application/cbor":
		return "application/problem+cbor"
	}
	return ct
}

// FieldError describes a single validation failure. A nil Field marks an
// object-level violation (e.g. a cross-field rule). A nil Rejected means no
// rejected value is reported, while a pointer to "" reports an empty value.
type FieldError struct {
	Field    *string `json:"field,omitempty" yaml:"field,omitempty" msgpack:"field,omitempty" toml:"field,omitempty" xml:"field,omitempty"`
	Rejected *string `json:"rejected,omitempty" yaml:"rejected,omitempty" msgpack:"rejected,omitempty" toml:"rejected,omitempty" xml:"rejected,omitempty"`
	Message  string  `json:"message" yaml:"message" msgpack:"message" toml:"message" xml:"message"`
}

// Error satisfies the `error` interface.
func (e *FieldError) Error() string {
	if e.Field == nil {
		return e.Message
	}
	var sb strings.Builder
	sb.WriteString(*e.Field)
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Rejected != nil {
		sb.WriteString(" (rejected ")
		sb.WriteString(*e.Rejected)
		sb.WriteString(")")
	}
	return sb.String()
}

// ValidationErrorMessage is an ErrorMessage with an ordered list of field
// errors. Errors are only ever appended, in the order they are encountered.
type ValidationErrorMessage struct {
	ErrorMessage `yaml:",inline" msgpack:",inline"`

	Errors []*FieldError `json:"errors,omitempty" yaml:"errors,omitempty" msgpack:"errors,omitempty" toml:"errors,omitempty" xml:"errors>error,omitempty"`
}

// NewValidationErrorMessage creates a validation message from a template
// message, copying its fields.
func NewValidationErrorMessage(tmpl *ErrorMessage) *ValidationErrorMessage {
	m := &ValidationErrorMessage{}
	if tmpl != nil {
		m.ErrorMessage = *tmpl
	}
	return m
}

// AddError appends an object-level error.
func (m *ValidationErrorMessage) AddError(message string) {
	m.Errors = append(m.Errors, &FieldError{Message: message})
}

// AddFieldError appends an error for the named field. A nil rejected value
// is left out of the response.
func (m *ValidationErrorMessage) AddFieldError(field string, rejected *string, message string) {
	m.Errors = append(m.Errors, &FieldError{Field: &field, Rejected: rejected, Message: message})
}

// ContentTypeFilter allows a response body to override the content type the
// serializer picked, e.g. `application/problem+json` after using the
// `application/json` format.
type ContentTypeFilter interface {
	ContentType(string) string
}

// StatusError is an error that has an HTTP status code.
type StatusError interface {
	GetStatus() int
	Error() string
}
