// Package validation provides request payload validation with human-readable field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SpecialChars lists the symbols a password must contain at least one of.
const SpecialChars = "!@#$%^&*"

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("validation failed")

var personNameRe = regexp.MustCompile(`^[A-Za-z ]+$`)

// FieldError describes a single rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned when a payload fails validation.
type Error struct {
	Fields []FieldError
}

// Error returns the first field message, which is what forms display.
func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalid.Error()
	}
	return e.Fields[0].Message
}

// Unwrap allows errors.Is(err, ErrInvalid).
func (e *Error) Unwrap() error {
	return ErrInvalid
}

// Validator validates structs tagged with `validate`.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the account-specific rules registered:
// personname (letters and spaces) and specialchar (one of SpecialChars).
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("specialchar", func(fl validator.FieldLevel) bool {
		return strings.ContainsAny(fl.Field().String(), SpecialChars)
	})

	return &Validator{validate: v}
}

// Struct validates s and returns *Error listing every rejected field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate payload: %w", err)
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return &Error{Fields: fields}
}

// Fields extracts field errors from err, or nil when err is not a validation error.
func Fields(err error) []FieldError {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

func message(fe validator.FieldError) string {
	label := cases.Title(language.English).String(fe.Field())

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", label, fe.Param())
	case "email":
		return label + " must be a valid email address"
	case "personname":
		return label + " must only contain letters and spaces"
	case "specialchar":
		return label + " must contain at least one special character " + SpecialChars
	case "nefield":
		return fmt.Sprintf("%s cannot be the same as %s", label, strings.ToLower(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return label + " is invalid"
	}
}
