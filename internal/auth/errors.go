package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to clients.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeMissingFields          = "MISSING_REQUIRED_FIELDS"
	CodeMissingToken           = "MISSING_TOKEN"
	CodeMissingEmail           = "MISSING_EMAIL"
	CodeInvalidEmailFormat     = "INVALID_EMAIL_FORMAT"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeAccountDeactivated     = "ACCOUNT_DEACTIVATED"
	CodeAccountLocked          = "ACCOUNT_LOCKED"
	CodeInvalidOTPFormat       = "INVALID_OTP_FORMAT"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeInvalidTokenType       = "INVALID_TOKEN_TYPE"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeOTPAttemptsExceeded    = "OTP_ATTEMPTS_EXCEEDED"
	CodeInvalidOTP             = "INVALID_OTP"
	CodeOTPExpired             = "OTP_EXPIRED"
	CodeOTPRateLimited         = "OTP_RATE_LIMITED"
	CodeEmailSend              = "EMAIL_SEND_ERROR"
	CodeInvalidResetToken      = "INVALID_RESET_TOKEN"
	CodeWeakPassword           = "WEAK_PASSWORD"
	CodeUserExists             = "USER_EXISTS"
	CodeSamePassword           = "SAME_PASSWORD"
	CodeInvalidCurrentPassword = "INVALID_CURRENT_PASSWORD"
)

// Error is a client-visible failure of an auth operation.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// CodeOf returns the client code carried by err, or "" for infrastructure errors.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

var (
	errInvalidCredentials = newError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials")
	errLoginDeactivated   = newError(http.StatusUnauthorized, CodeAccountDeactivated, "Account is deactivated. Please contact administrator.")
	errDeactivated        = newError(http.StatusUnauthorized, CodeAccountDeactivated, "Account has been deactivated")
	errInvalidToken       = newError(http.StatusUnauthorized, CodeInvalidToken, "Invalid or expired token")
	errInvalidTokenType   = newError(http.StatusUnauthorized, CodeInvalidTokenType, "Invalid token type")
	errUserNotFound       = newError(http.StatusNotFound, CodeUserNotFound, "User not found")
	errInvalidOTPFormat   = newError(http.StatusBadRequest, CodeInvalidOTPFormat, "Invalid OTP format")
	errOTPExceeded        = newError(http.StatusUnauthorized, CodeOTPAttemptsExceeded, "Too many invalid OTP attempts. Please login again.")
	errOTPExpired         = newError(http.StatusUnauthorized, CodeOTPExpired, "OTP has expired. Please login again.")
	errEmailSend          = newError(http.StatusInternalServerError, CodeEmailSend, "Failed to send OTP. Please try again.")
	errInvalidResetToken  = newError(http.StatusBadRequest, CodeInvalidResetToken, "Invalid or expired reset token")
)

func validationError(code, message string) *Error {
	return newError(http.StatusBadRequest, code, message)
}
