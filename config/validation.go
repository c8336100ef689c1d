package config

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
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
			return name
		})
		_ = v.RegisterValidation("region", func(fl validator.FieldLevel) bool {
			return Region(fl.Field().String()).IsValid()
		})
		structValidator = v
	})
	return structValidator
}

// Validate checks cfg and returns a *ConfigError describing the first problem found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return NewValidationError("config", "configuration is nil")
	}

	if err := getValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return NewValidationError("config", err.Error())
	}

	return validateHosts(cfg.Hosts)
}

// NewValidationError creates a general validation error with custom message.
func NewValidationError(field, message string) *ConfigError {
	return &ConfigError{
		Category: CategoryInvalid,
		Field:    field,
		Message:  message,
	}
}

func fieldError(fe validator.FieldError) *ConfigError {
	field := koanfPath(fe.Namespace())
	switch fe.Tag() {
	case "region":
		return NewInvalidFieldError(field, fmt.Sprintf("unknown region %q", fe.Value()),
			append(regionNames(regionalOrder), string(RegionGlobal)))
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("unsupported value %q", fe.Value()), strings.Fields(fe.Param()))
	case "gte", "min":
		return NewValidationError(field, "must be at least "+fe.Param())
	case "lte", "max":
		return NewValidationError(field, "must be at most "+fe.Param())
	default:
		return NewValidationError(field, "failed "+fe.Tag()+" validation")
	}
}

// koanfPath turns "Config.client.rate.limit" into "client.rate.limit".
func koanfPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func validateHosts(hosts HostTable) error {
	for service, byRegion := range hosts {
		if strings.Contains(service, ".") {
			return NewValidationError("hosts."+service, "service names must not contain dots")
		}
		for region, host := range byRegion {
			field := fmt.Sprintf("hosts.%s.%s", service, region)
			if !region.IsValid() {
				return NewInvalidFieldError(field, fmt.Sprintf("unknown region %q", region),
					append(regionNames(regionalOrder), string(RegionGlobal)))
			}
			u, err := url.Parse(host)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return NewValidationError(field, "host must be an absolute url")
			}
		}
	}
	return nil
}
