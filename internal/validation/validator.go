// Package validation checks request payloads with go-playground/validator and reports problems per JSON field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	colorPattern    = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
)

// Reserved usernames that would shadow routes such as /users/me.
var reservedUsernames = []string{"me"}

// FieldErrors maps a JSON field name to its messages.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !usernamePattern.MatchString(s) {
			return false
		}
		for _, r := range reservedUsernames {
			if strings.EqualFold(s, r) {
				return false
			}
		}
		return true
	})
	_ = v.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		return colorPattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate returns nil when s is valid, otherwise the messages keyed by field.
func (v *Validator) Validate(s any) FieldErrors {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"non_field_errors": {err.Error()}}
	}

	out := FieldErrors{}
	for _, e := range verrs {
		out.Add(fieldPath(e), friendlyMessage(e))
	}
	return out
}

// fieldPath drops the top-level struct name: "RegisterRequest.email" -> "email".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
		}
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("Ensure this list has at least %s items.", e.Param())
		}
		return "Ensure this value is greater than or equal to " + e.Param() + "."
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
		}
		return "Ensure this value is less than or equal to " + e.Param() + "."
	case "gt":
		return "Ensure this value is greater than " + e.Param() + "."
	case "gte":
		return "Ensure this value is greater than or equal to " + e.Param() + "."
	case "username":
		return "Enter a valid username: letters, digits and @/./+/-/_ only, and not a reserved name."
	case "color":
		return "Enter a valid HEX color such as #49B64E."
	default:
		return "Invalid value."
	}
}
