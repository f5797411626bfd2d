package error_handler

import (
	"net/http"

	"jobsync/commons/response"
)

type ErrorCollection struct {
	errors []response.Errors
}

func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		errors: make([]response.Errors, 0),
	}
}

func (ec *ErrorCollection) AddError(code int, message string, data any) *ErrorCollection {
	ec.errors = append(ec.errors, response.Errors{
		ErrorCode: code,
		Message:   message,
		Data:      data,
	})
	return ec
}

func (ec *ErrorCollection) HasErrors() bool {
	return len(ec.errors) > 0
}

func (ec *ErrorCollection) GetErrors() []response.Errors {
	return ec.errors
}

// GetHTTPStatus maps the first error to its status. Codes outside the HTTP
// error range fall back to 400.
func (ec *ErrorCollection) GetHTTPStatus() int {
	if !ec.HasErrors() {
		return http.StatusOK
	}

	code := ec.errors[0].ErrorCode
	if http.StatusText(code) != "" && code >= 400 && code < 600 {
		return code
	}
	return http.StatusBadRequest
}

// Common error codes
const (
	CodeValidationError     = 400
	CodeNotFound            = 404
	CodeConflict            = 409
	CodeInternalServerError = 500
	CodeServiceUnavailable  = 503
)

// Helper functions for common errors
func GetValidationError(message string) response.Errors {
	return response.Errors{ErrorCode: CodeValidationError, Message: message}
}

func GetNotFoundError(message string) response.Errors {
	return response.Errors{ErrorCode: CodeNotFound, Message: message}
}

func GetConflictError(message string) response.Errors {
	return response.Errors{ErrorCode: CodeConflict, Message: message}
}

func GetInternalServerError(message string) response.Errors {
	return response.Errors{ErrorCode: CodeInternalServerError, Message: message}
}
