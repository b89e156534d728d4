package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegistrationRequest is the payload accepted by POST /api/auth/register.
type RegistrationRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required"`
	Role             string `json:"role" binding:"required"`
	TwoFactorEnabled *bool  `json:"twoFactorEnabled,omitempty"`
}

// LoginRequest is the payload accepted by POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyOTPRequest is the payload accepted by POST /api/auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// LoginResponse reports the authentication status. The refresh token travels only in
// the HttpOnly cookie, so it has no field here.
type LoginResponse struct {
	Status      string  `json:"status"`
	Role        string  `json:"role"`
	AccessToken *string `json:"accessToken"`
	TokenType   string  `json:"tokenType,omitempty"`
	ExpiresIn   int     `json:"expiresIn,omitempty"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
