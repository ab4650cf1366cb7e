package exhandler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newValidationHandler() ExceptionHandler {
	return NewValidationHandler(ClassValidation, http.StatusUnprocessableEntity).
		Configure(testSettings(zap.NewNop(), DefaultMessages()))
}

func TestValidationHandlerFieldAndObjectErrors(t *testing.T) {
	verr := &ValidationError{Object: "widget"}
	verr.Add("name", "", "must not be blank")
	verr.Add("", nil, "cross-field constraint violated")

	resp := newValidationHandler().Handle(verr, httptest.NewRequest(http.MethodPost, "/widgets", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)

	msg := resp.Body.(*ValidationErrorMessage)
	assert.Equal(t, http.StatusUnprocessableEntity, msg.Status)
	assert.Equal(t, "Validation Failed", msg.Title)
	assert.Equal(t, "The content you've sent contains 2 validation error(s).", msg.Detail)

	empty := ""
	name := "name"
	assert.Equal(t, []*FieldError{
		{Field: &name, Rejected: &empty, Message: "must not be blank"},
		{Message: "cross-field constraint violated"},
	}, msg.Errors)
}

func TestValidationHandlerOrder(t *testing.T) {
	verr := &ValidationError{}
	paths := []string{"a", "", "b.c", "items[2].name", "d.", "e"}
	for i, p := range paths {
		verr.Add(p, i, "m")
	}

	msg := newValidationHandler().Handle(verr, httptest.NewRequest(http.MethodPost, "/widgets", nil)).Body.(*ValidationErrorMessage)
	require.Len(t, msg.Errors, len(paths))

	fields := make([]string, 0, len(paths))
	for _, e := range msg.Errors {
		if e.Field == nil {
			fields = append(fields, "<object>")
			continue
		}
		fields = append(fields, *e.Field+"="+*e.Rejected)
	}
	assert.Equal(t, []string{"a=0", "<object>", "c=2", "name=3", "d=4", "e=5"}, fields)
}

func TestValidationHandlerOtherErrors(t *testing.T) {
	msg := newValidationHandler().Handle(errors.New("not a validation error"), httptest.NewRequest(http.MethodGet, "/", nil)).Body.(*ValidationErrorMessage)
	assert.Empty(t, msg.Errors)
	assert.Equal(t, http.StatusUnprocessableEntity, msg.Status)
}

func TestLeafProperty(t *testing.T) {
	for path, expected := range map[string]string{
		"":                 "",
		".":                "",
		"name":             "name",
		"address.street":   "street",
		"items[0]":         "items",
		"items[0].name":    "name",
		"address.":         "address",
		" spaced . field ": "field",
		"a.b[1][2]":        "b",
	} {
		assert.Equal(t, expected, leafProperty(path), path)
	}
}

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestRejectedString(t *testing.T) {
	assert.Nil(t, rejectedString(nil))
	assert.Equal(t, "", *rejectedString(""))
	assert.Equal(t, "42", *rejectedString(42))
	assert.Equal(t, "true", *rejectedString(true))
	assert.Equal(t, "1.5", *rejectedString(1.5))
	assert.Equal(t, "stringer", *rejectedString(stringer{}))
	// Not convertible by cast, falls back to the default format.
	assert.Equal(t, "[1 2]", *rejectedString([]int{1, 2}))
}

type signup struct {
	Name     string `validate:"required"`
	Age      int    `validate:"gte=18"`
	Password string `validate:"required"`
	Confirm  string `validate:"eqfield=Password"`
	Address  struct {
		Zip string `validate:"len=5"`
	}
}

func TestNewValidationError(t *testing.T) {
	validate := validator.New()
	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	require.NoError(t, entranslations.RegisterDefaultTranslations(validate, trans))

	in := signup{Age: 12, Password: "a", Confirm: "b"}
	in.Address.Zip = "123"
	err := NewValidationError(validate.Struct(&in), trans)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "signup", verr.Object)
	require.Len(t, verr.Violations, 4)
	assert.Equal(t, "Name", verr.Violations[0].Path)
	assert.Equal(t, "Name is a required field", verr.Violations[0].Message)
	assert.Equal(t, 12, verr.Violations[1].Value)
	assert.Equal(t, "Address.Zip", verr.Violations[3].Path)
	assert.Same(t, ClassValidation, ClassOf(err))
	assert.Equal(t, 4, verr.TemplateVars()["count"])

	// Without a translator the rule is reported.
	err = NewValidationError(validate.Struct(&in), nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "failed on the 'required' rule", verr.Violations[0].Message)
	assert.Equal(t, "failed on the 'gte=18' rule", verr.Violations[1].Message)

	other := errors.New("other")
	assert.Same(t, other, NewValidationError(other, nil))
}

func TestValidationErrorError(t *testing.T) {
	verr := &ValidationError{}
	verr.Add("name", "", "must not be blank")
	verr.Add("", nil, "dates out of order")
	assert.Equal(t, "validation failed: name: must not be blank, dates out of order", verr.Error())
}
