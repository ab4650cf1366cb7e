package exhandler

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageOmitsEmpty(t *testing.T) {
	b, err := json.Marshal(&ErrorMessage{Title: "Not Found", Status: 404})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "Not Found", "status": 404}`, string(b))

	b, err = xml.Marshal(&ErrorMessage{Status: 500, Detail: "boom"})
	require.NoError(t, err)
	assert.Equal(t, `<problem xmlns="urn:ietf:rfc:7807"><status>500</status><detail>boom</detail></problem>`, string(b))
}

func TestErrorMessageError(t *testing.T) {
	assert.Equal(t, "detail", (&ErrorMessage{Title: "title", Detail: "detail"}).Error())
	assert.Equal(t, "title", (&ErrorMessage{Title: "title"}).Error())
	assert.Equal(t, "Bad Gateway", (&ErrorMessage{Status: 502}).Error())

	var se StatusError = &ErrorMessage{Status: 418}
	assert.Equal(t, 418, se.GetStatus())
}

func TestErrorMessageContentType(t *testing.T) {
	m := &ErrorMessage{}
	assert.Equal(t, "application/problem+json", m.ContentType("application/json"))
	assert.Equal(t, "application/problem+xml", m.ContentType("application/xml"))
	assert.Equal(t, "application/problem+xml", m.ContentType("text/xml"))
	assert.Equal(t, "application/problem+cbor", m.ContentType("application/cbor"))
	assert.Equal(t, "application/yaml", m.ContentType("application/yaml"))
}

func TestValidationErrorMessage(t *testing.T) {
	rejected := ""
	msg := NewValidationErrorMessage(&ErrorMessage{Title: "Validation Failed", Status: 422})
	msg.AddFieldError("name", &rejected, "must not be blank")
	msg.AddFieldError("age", nil, "is required")
	msg.AddError("dates are out of order")

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "Validation Failed",
		"status": 422,
		"errors": [
			{"field": "name", "rejected": "", "message": "must not be blank"},
			{"field": "age", "message": "is required"},
			{"message": "dates are out of order"}
		]
	}`, string(b))

	b, err = xml.Marshal(msg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), `<problem xmlns="urn:ietf:rfc:7807">`))
	assert.Contains(t, string(b), `<errors><error><field>name</field><rejected></rejected><message>must not be blank</message></error>`)

	// Content type filtering is promoted from the embedded message.
	var ctf ContentTypeFilter = msg
	assert.Equal(t, "application/problem+json", ctf.ContentType("application/json"))
}

func TestFieldErrorError(t *testing.T) {
	field, rejected := "age", "-1"
	assert.Equal(t, "age: must be positive (rejected -1)", (&FieldError{Field: &field, Rejected: &rejected, Message: "must be positive"}).Error())
	assert.Equal(t, "age: must be positive", (&FieldError{Field: &field, Message: "must be positive"}).Error())
	assert.Equal(t, "bad", (&FieldError{Message: "bad"}).Error())
}

func TestNewValidationErrorMessageNil(t *testing.T) {
	msg := NewValidationErrorMessage(nil)
	assert.Zero(t, msg.Status)
	assert.Empty(t, msg.Errors)
}
