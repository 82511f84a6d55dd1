package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/knowledge-backend/internal/domain/aggregates"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From converts any error into an *Error. Explicit *Error values pass
// through; aggregate codes map to their HTTP status; everything else is 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	code := aggregates.CodeOf(err)
	return New(StatusFor(code), codeString(code), err)
}

func StatusFor(code aggregates.ErrorCode) int {
	switch code {
	case aggregates.CodeValidation:
		return http.StatusBadRequest
	case aggregates.CodeNotFound:
		return http.StatusNotFound
	case aggregates.CodeForbidden:
		return http.StatusForbidden
	case aggregates.CodeConflict:
		return http.StatusConflict
	case aggregates.CodeExternalLookup:
		return http.StatusBadGateway
	case aggregates.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeString(code aggregates.ErrorCode) string {
	if code == "" {
		return string(aggregates.CodeInternal)
	}
	return string(code)
}
