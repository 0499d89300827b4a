// errors.go - Error taxonomy and the single point where errors become HTTP responses
//
// Every handler and middleware returns failures as *Error (or a plain error,
// which is treated as internal). Respond is the only place that chooses a
// status code and shapes the JSON body, so nothing unwinds past a handler.

package apperrors

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an error independently of its HTTP status.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindBadRequest     Kind = "bad_request"
	KindRateLimited    Kind = "rate_limited"
	KindInternal       Kind = "internal"
)

// Stable machine-readable codes shared with clients.
const (
	CodeValidation       = "validation-failed"
	CodeUnauthenticated  = "unauthenticated"
	CodeNotAdmin         = "forbidden:not-admin"
	CodeNotSelfOrAdmin   = "forbidden:not-self-or-admin"
	CodeSelfDeactivation = "forbidden:self-deactivation"
	CodeNotFound         = "not-found"
	CodeEmailTaken       = "email-taken"
	CodeInvalidCreds     = "invalid-credentials"
	CodeAccountInactive  = "account-inactive"
	CodePasswordMismatch = "password-mismatch"
	CodeBadRequest       = "bad-request"
	CodeRateLimited      = "rate-limited"
	CodeInternal         = "internal-error"
)

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string
	Message string
}

// Error is the application error carried from handlers to Respond.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Fields  []FieldError
	Err     error // root cause, never shown outside development
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Code: CodeValidation, Message: "Validation failed", Fields: fields}
}

func Authentication(code, message string) *Error {
	return &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized, Code: code, Message: message}
}

func Authorization(code, message string) *Error {
	return &Error{Kind: KindAuthorization, Status: http.StatusForbidden, Code: code, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusBadRequest, Code: code, Message: message}
}

func BadRequest(code, message string) *Error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Code: code, Message: message}
}

func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Code: CodeInternal, Message: message, Err: err}
}

// As extracts an *Error from err, wrapping anything else as internal.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// Respond aborts the request and writes err as JSON.
// Root-cause detail is included only when devMode is set.
func Respond(c *gin.Context, err error, devMode bool) {
	appErr := As(err)

	body := gin.H{
		"success": false,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Fields) > 0 {
		fields := make([]gin.H, 0, len(appErr.Fields))
		for _, f := range appErr.Fields {
			fields = append(fields, gin.H{f.Field: f.Message})
		}
		body["errors"] = fields
	}
	if appErr.Kind == KindInternal {
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.FullPath(), appErr)
		if devMode && appErr.Err != nil {
			body["error"] = appErr.Err.Error()
		}
	}

	c.AbortWithStatusJSON(appErr.Status, body)
}
