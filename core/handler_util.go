package core

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// respondError sends the error payload {"error": message} the frontend reads.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondAuthError maps err through the auth taxonomy; 429 carries retry_after_seconds.
func respondAuthError(c *gin.Context, err error) {
	status, message := statusFor(err)
	var throttled *ThrottleError
	if errors.As(err, &throttled) {
		c.Header("Retry-After", strconv.Itoa(throttled.RetryAfterSeconds))
		c.JSON(status, gin.H{"error": message, "retry_after_seconds": throttled.RetryAfterSeconds})
		return
	}
	respondError(c, status, message)
}

func respondOK(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
