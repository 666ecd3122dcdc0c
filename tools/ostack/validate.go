package ostack

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks opts for the fields every service needs and returns a
// *ValidationError for the first one that is missing. It performs no I/O.
func Validate(serviceName string, opts Options) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: serviceName, Reason: err.Error()}
	}
	return fieldError(verrs[0])
}

func fieldError(fe validator.FieldError) *ValidationError {
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: fe.Field()}
	case "required_without":
		return &ValidationError{Field: "tenant_id or tenant_name"}
	case "excluded_with":
		return &ValidationError{Field: fe.Field(), Reason: "must not be set together with tenant_id"}
	case "oneof":
		return &ValidationError{Field: fe.Field(), Reason: "must be one of " + fe.Param()}
	default:
		return &ValidationError{Field: fe.Field(), Reason: "failed " + fe.Tag()}
	}
}
