package apperrors

import "errors"

// Taxonomy sentinels. Every error that leaves a service wraps one of these.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")
	ErrUpstream         = errors.New("upstream service failure")
	// ErrUpstreamUnavailable is an ErrUpstream raised without calling the provider.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// Domain errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrProgramNotFound      = errors.New("program not found")
	ErrCourseNotFound       = errors.New("course not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrUploadNotFound       = errors.New("upload not found")
	ErrNewsPostNotFound     = errors.New("news post not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrResetTokenNotFound   = errors.New("password reset token not found")
)

// CustomError carries a client-facing message on top of a taxonomy sentinel
type CustomError struct {
	Err     error
	Message string
	Field   string
	Details map[string]interface{}
}

func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// WithField names the offending input field
func (e *CustomError) WithField(field string) *CustomError {
	e.Field = field
	return e
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{Err: err, Message: message}
}

func NewValidationError(message string) *CustomError {
	return NewCustomError(ErrValidationFailed, message)
}

func NewForbiddenError(message string) *CustomError {
	return NewCustomError(ErrPermissionDenied, message)
}

// NewNotFoundError wraps both the generic not-found sentinel and a domain one,
// so callers can match on either.
func NewNotFoundError(domain error, message string) *CustomError {
	if domain == nil {
		return NewCustomError(ErrResourceNotFound, message)
	}
	return NewCustomError(errors.Join(ErrResourceNotFound, domain), message)
}

func NewConflictError(message string) *CustomError {
	return NewCustomError(ErrConflict, message)
}

// NewUpstreamError marks a failure of an external provider. cause is kept for logs.
func NewUpstreamError(message string, cause error) *CustomError {
	if cause == nil {
		return NewCustomError(ErrUpstream, message)
	}
	return NewCustomError(errors.Join(ErrUpstream, cause), message)
}

// NewUnavailableError is an upstream error raised because the provider is known to be down.
func NewUnavailableError(message string) *CustomError {
	return NewCustomError(errors.Join(ErrUpstream, ErrUpstreamUnavailable), message)
}

// Is reports whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// Message returns the client-facing message of err if it is a CustomError.
func Message(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return ""
}
