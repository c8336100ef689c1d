package httpclient

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	requestValidator     *validator.Validate
	requestValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	requestValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return strings.ToLower(fld.Name)
		})
		requestValidator = v
	})
	return requestValidator
}

// validateRequest checks a normalized request before it is sent.
func validateRequest(r *Request) error {
	if err := getValidator().Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return NewValidationError(err.Error(), "request")
	}

	field, target := "url", r.URL
	if target == "" {
		field, target = "host", r.Host
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return NewValidationError(fmt.Sprintf("%q must be an absolute url", target), field)
	}
	return nil
}

func fieldError(fe validator.FieldError) ClientError {
	field := fe.Field()
	switch fe.Tag() {
	case "required_without":
		return NewValidationError("either url or host is required", field)
	case "excluded_with":
		return NewValidationError("url and host are mutually exclusive", field)
	case "oneof":
		return NewValidationError(fmt.Sprintf("unsupported value %q", fe.Value()), field)
	case "gte":
		return NewValidationError("must not be negative", field)
	default:
		return NewValidationError("failed "+fe.Tag()+" validation", field)
	}
}
