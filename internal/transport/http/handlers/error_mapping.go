package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/securehealth/identity/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

const otpFailureMessage = "invalid or expired otp"

var (
	registerErrorCases = []ErrorCase{
		{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "invalid registration payload"},
		{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
		{Err: usecase.ErrDuplicateAccount, Status: http.StatusConflict, Message: "email already taken"},
	}

	loginErrorCases = []ErrorCase{
		{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
		{Err: usecase.ErrAccountLocked, Status: http.StatusLocked, Message: "account locked"},
	}

	// Unknown emails share the OTP failure message so the endpoint cannot be used to probe accounts.
	verifyOTPErrorCases = []ErrorCase{
		{Err: usecase.ErrInvalidOrExpiredOTP, Status: http.StatusUnauthorized, Message: otpFailureMessage},
		{Err: usecase.ErrAccountNotFound, Status: http.StatusUnauthorized, Message: otpFailureMessage},
		{Err: usecase.ErrAccountLocked, Status: http.StatusLocked, Message: "account locked"},
	}

	refreshErrorCases = []ErrorCase{
		{Err: usecase.ErrInvalidSession, Status: http.StatusUnauthorized, Message: "invalid session"},
		{Err: usecase.ErrAccountLocked, Status: http.StatusLocked, Message: "account locked"},
	}
)

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	_ = c.Error(err)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
