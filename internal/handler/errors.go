package handler

import (
	"errors"
	"log"
	"net/http"

	"messmate/internal/auth"
	"messmate/internal/domain"
	"messmate/internal/service"

	"github.com/gin-gonic/gin"
)

type codedError struct {
	err    error
	status int
	code   string
}

var authErrors = []codedError{
	{service.ErrEmailExists, http.StatusConflict, domain.CodeEmailExists},
	{service.ErrInvalidCreds, http.StatusUnauthorized, domain.CodeInvalidCredentials},
	{service.ErrEmailNotVerified, http.StatusForbidden, domain.CodeEmailNotVerified},
	{service.ErrInvalidOTP, http.StatusBadRequest, domain.CodeInvalidOTP},
	{service.ErrOTPExpired, http.StatusBadRequest, domain.CodeOTPExpired},
	{service.ErrOTPAttemptsExceeded, http.StatusTooManyRequests, domain.CodeOTPAttemptsExceeded},
	{service.ErrUserNotFound, http.StatusNotFound, domain.CodeUserNotFound},
	{service.ErrInvalidRole, http.StatusBadRequest, ""},
	{service.ErrWeakPassword, http.StatusBadRequest, ""},
	{auth.ErrInvalidToken, http.StatusUnauthorized, ""},
}

// respondAuthError writes {"error", "code"} for known auth failures and a
// generic 500 otherwise.
func respondAuthError(c *gin.Context, op string, err error) {
	for _, e := range authErrors {
		if errors.Is(err, e.err) {
			body := gin.H{"error": e.err.Error()}
			if e.code != "" {
				body["code"] = e.code
			}
			c.JSON(e.status, body)
			return
		}
	}
	log.Printf("[auth] %s failed: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}
