// Package utils holds small HTTP response helpers shared by the control
// plane handlers.
package utils

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"portrelay/internal/shared/errors"
)

// ErrorInfo is the JSON shape of an error response body. spec.md leaves
// error bodies unspecified beyond the status code, so this follows the
// teacher's envelope (internal/shared/utils/response.go) rather than a
// bespoke one.
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorInfo `json:"error"`
}

// ErrorResponseWithError maps err onto a status code and JSON body: an
// *errors.AppError carries its own Code/Type/Message, a gin/validator
// ValidationErrors is reported as 400, anything else collapses to a bare
// 500 so internals are never leaked.
func ErrorResponseWithError(c *gin.Context, err error) {
	var statusCode int
	var info ErrorInfo

	if appErr := errors.GetAppError(err); appErr != nil {
		statusCode = appErr.Code
		info = ErrorInfo{Type: string(appErr.Type), Message: appErr.Message, Details: appErr.Details}
	} else if validationErrs, ok := err.(validator.ValidationErrors); ok {
		statusCode = http.StatusBadRequest
		info = ErrorInfo{
			Type:    string(errors.ErrorTypeValidation),
			Message: "request validation failed",
			Details: formatValidationErrors(validationErrs),
		}
	} else {
		statusCode = http.StatusInternalServerError
		info = ErrorInfo{Type: string(errors.ErrorTypeInternal), Message: "internal server error"}
	}

	c.JSON(statusCode, errorEnvelope{Error: info})
}

// ErrorResponse sends a bare error response with a custom status and message.
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, errorEnvelope{Error: ErrorInfo{Type: "error", Message: message}})
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return ""
	}
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, formatFieldError(err))
	}
	if len(messages) == 1 {
		return messages[0]
	}
	return strings.Join(messages, "; ")
}

func formatFieldError(fe validator.FieldError) string {
	return FormatFieldError(toSnakeCase(fe.Field()), fe.Tag(), fe.Param(), fe.Kind())
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
