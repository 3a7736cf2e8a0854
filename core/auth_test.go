package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{&ThrottleError{RetryAfterSeconds: 3}, http.StatusTooManyRequests, "Too many login attempts"},
		{ErrPasswordRequired, http.StatusBadRequest, "Password is required"},
		{ErrInvalidCredentials, http.StatusUnauthorized, "Invalid password"},
		{ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{ErrOriginNotAllowed, http.StatusForbidden, "Origin not allowed"},
		{ErrAuthNotConfigured, http.StatusInternalServerError, "Authentication is unavailable"},
		{fmt.Errorf("lookup: %w", ErrAuthNotConfigured), http.StatusInternalServerError, "Authentication is unavailable"},
		{oops.Code("RATELIMIT_RECORD_FAILED").Wrap(errors.New("dial tcp: refused")), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, msg := statusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
