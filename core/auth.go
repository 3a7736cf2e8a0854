package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthNotConfigured is returned when the stored hash is missing or the pepper is a placeholder.
	ErrAuthNotConfigured = errors.New("auth not configured")
	// ErrPasswordRequired is returned for an empty or missing password field.
	ErrPasswordRequired = errors.New("password is required")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid password")
	// ErrUnauthorized is returned when no valid session backs the request.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrOriginNotAllowed is returned for a declared origin outside the allow-list.
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// ThrottleError reports that the caller's IP exceeded the failed-login budget.
type ThrottleError struct {
	RetryAfterSeconds int
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("too many login attempts, retry after %ds", e.RetryAfterSeconds)
}

// statusFor maps an auth error to its HTTP status and client-facing message.
// Anything outside the taxonomy is an internal failure and gets a generic message.
func statusFor(err error) (int, string) {
	var throttled *ThrottleError
	switch {
	case errors.As(err, &throttled):
		return http.StatusTooManyRequests, "Too many login attempts"
	case errors.Is(err, ErrPasswordRequired):
		return http.StatusBadRequest, "Password is required"
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid password"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, ErrOriginNotAllowed):
		return http.StatusForbidden, "Origin not allowed"
	case errors.Is(err, ErrAuthNotConfigured):
		return http.StatusInternalServerError, "Authentication is unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
