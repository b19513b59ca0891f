package domain

import (
	"errors"
	"fmt"
)

// Error codes for the failure taxonomy.
//
// CodeValidation covers client-side input problems caught before any
// network call. CodeNetwork covers calls that produced no response at
// all (offline, DNS, timeout). CodeHTTP covers non-2xx responses.
// CodeApplication covers 2xx responses whose payload reports a logical
// failure (success: false). The remaining codes classify server-side
// conditions surfaced by the fixture server.
const (
	CodeValidation = iota + 1
	CodeNetwork
	CodeHTTP
	CodeApplication
	CodeUnauthorized
	CodeNotFound
	CodeConflict
	CodeInternal
)

// AppError represents a classified error with a code, a user-displayable
// message, an optional HTTP status, and an optional wrapped cause.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Status is the HTTP status code for CodeHTTP errors; zero otherwise.
	Status int `json:"status,omitempty"`
	// FromServer marks messages supplied by the server rather than
	// synthesized client-side. Server messages take precedence in
	// user-facing notifications.
	FromServer bool  `json:"-"`
	Err        error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined errors.
//
// To check whether an error matches one of these categories, use the
// corresponding helper (IsValidation, IsNetwork, etc.) instead of
// errors.Is. The helpers use errors.As with error-code comparison, so
// they match any *AppError carrying the same code, including freshly
// constructed and wrapped instances, whereas errors.Is only matches by
// pointer identity with the sentinel itself.
var (
	ErrValidation   = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrNetwork      = &AppError{Code: CodeNetwork, Message: "network error"}
	ErrUnauthorized = &AppError{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrNotFound     = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrConflict     = &AppError{Code: CodeConflict, Message: "already exists"}
	ErrInternal     = &AppError{Code: CodeInternal, Message: "internal error"}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a CodeValidation error with the given message.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewNetworkError creates a CodeNetwork error wrapping the transport failure.
// Timeouts are reported through this constructor as well: a request that
// never completes is indistinguishable, to the caller, from one that never
// reached the server.
func NewNetworkError(err error) *AppError {
	return &AppError{Code: CodeNetwork, Message: "network error", Err: err}
}

// NewHTTPError creates a CodeHTTP error for a non-2xx response. When the
// server supplied a message it takes precedence; otherwise a generic
// message naming the status is used.
func NewHTTPError(status int, message string) *AppError {
	fromServer := message != ""
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return &AppError{Code: CodeHTTP, Message: message, Status: status, FromServer: fromServer}
}

// NewApplicationError creates a CodeApplication error for a 2xx response
// whose payload reported success: false.
func NewApplicationError(message string) *AppError {
	fromServer := message != ""
	if message == "" {
		message = "operation rejected by server"
	}
	return &AppError{Code: CodeApplication, Message: message, FromServer: fromServer}
}

// ServerMessage returns the server-supplied message carried by err, if
// any. It reports false for client-synthesized messages so callers can
// fall back to an action-specific generic message.
func ServerMessage(err error) (string, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.FromServer {
		return appErr.Message, true
	}
	return "", false
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsNetwork reports whether err is or wraps an AppError with CodeNetwork.
func IsNetwork(err error) bool {
	return hasCode(err, CodeNetwork)
}

// IsHTTP reports whether err is or wraps an AppError with CodeHTTP.
func IsHTTP(err error) bool {
	return hasCode(err, CodeHTTP)
}

// IsApplication reports whether err is or wraps an AppError with CodeApplication.
func IsApplication(err error) bool {
	return hasCode(err, CodeApplication)
}

// IsUnauthorized reports whether err is or wraps an AppError with CodeUnauthorized.
func IsUnauthorized(err error) bool {
	return hasCode(err, CodeUnauthorized)
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsConflict reports whether err is or wraps an AppError with CodeConflict.
func IsConflict(err error) bool {
	return hasCode(err, CodeConflict)
}

// HTTPStatus returns the HTTP status carried by a CodeHTTP error, or zero.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// UserMessage returns the user-displayable message for err. For classified
// errors it returns the carried message; for anything else it returns the
// given fallback so raw error strings never reach the user.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// hasCode checks whether err is or wraps an *AppError with the given code.
func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
