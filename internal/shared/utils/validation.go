package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"portrelay/internal/shared/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateStruct validates s against its `validate` struct tags and returns
// a single *errors.AppError (validation kind) describing every failing field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return errors.NewValidationError("validation failed", err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, getFieldErrorMessage(fieldError))
	}

	return errors.NewValidationError("validation failed", strings.Join(messages, "; "))
}

// FormatFieldError formats a single field validation failure into a
// human-readable message. field lets callers substitute a display name
// (e.g. snake_case) for the struct field name.
func FormatFieldError(field, tag, param string, kind reflect.Kind) string {
	switch tag {
	case "required":
		return field + " is required"
	case "min":
		if kind == reflect.String || kind == reflect.Slice {
			return field + " must have at least " + param + " elements"
		}
		return field + " must be at least " + param
	case "max":
		if kind == reflect.String || kind == reflect.Slice {
			return field + " must have at most " + param + " elements"
		}
		return field + " must be at most " + param
	case "oneof":
		return field + " must be one of: " + param
	case "ip":
		return field + " must be a valid IP address"
	case "hostname_port", "tcp_addr", "udp_addr":
		return field + " must be a valid host:port address"
	case "dive":
		return field + " contains an invalid element"
	default:
		return field + " failed validation: " + tag
	}
}

func getFieldErrorMessage(fe validator.FieldError) string {
	return FormatFieldError(fe.Field(), fe.Tag(), fe.Param(), fe.Kind())
}
