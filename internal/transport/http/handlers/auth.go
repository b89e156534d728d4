package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/core/domain"
	"github.com/securehealth/identity/internal/infra/config"
	"github.com/securehealth/identity/internal/infra/logger"
	"github.com/securehealth/identity/internal/usecase"
)

// AuthService is the authentication engine consumed by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*domain.Account, error)
	Login(ctx context.Context, email, password string, client usecase.ClientInfo) (*usecase.LoginResult, error)
	VerifyOTP(ctx context.Context, email, code string, client usecase.ClientInfo) (*usecase.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, client usecase.ClientInfo) (*usecase.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// CookieConfig describes the refresh token cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// NewCookieConfig converts cookie settings into a CookieConfig.
func NewCookieConfig(cfg config.CookieSettings) CookieConfig {
	out := CookieConfig{
		Name:     cfg.Name,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   cfg.MaxAge,
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SameSite)) {
	case "lax":
		out.SameSite = http.SameSiteLaxMode
	case "none":
		out.SameSite = http.SameSiteNoneMode
	}
	if out.Name == "" {
		out.Name = "refreshToken"
	}
	if out.Path == "" {
		out.Path = "/api/auth"
	}
	if out.MaxAge <= 0 {
		out.MaxAge = 7 * 24 * time.Hour
	}
	return out
}

// AuthRouteMiddlewares holds optional per-route middleware such as rate limits.
type AuthRouteMiddlewares struct {
	Register  []gin.HandlerFunc
	Login     []gin.HandlerFunc
	VerifyOTP []gin.HandlerFunc
	Refresh   []gin.HandlerFunc
}

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth   AuthService
	cookie CookieConfig
	logger *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth AuthService, cookie CookieConfig, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{auth: auth, cookie: cookie, logger: log}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, mw AuthRouteMiddlewares) {
	r.POST("/register", chain(mw.Register, h.register)...)
	r.POST("/login", chain(mw.Login, h.login)...)
	r.POST("/verify-otp", chain(mw.VerifyOTP, h.verifyOTP)...)
	r.POST("/refresh", chain(mw.Refresh, h.refresh)...)
	r.POST("/logout", h.logout)
}

func chain(middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middlewares)+1)
	out = append(out, middlewares...)
	return append(out, handler)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role"))
		return
	}

	_, err = h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Email:            strings.TrimSpace(req.Email),
		Password:         req.Password,
		Role:             role,
		TwoFactorEnabled: req.TwoFactorEnabled,
	})
	if err != nil {
		RespondWithMappedError(c, err, registerErrorCases, http.StatusInternalServerError, "failed to register account")
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "User registered successfully"})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password, clientInfo(c))
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "authentication failed")
		return
	}

	h.respondLogin(c, result)
}

func (h *AuthHandler) verifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and otp are required"))
		return
	}

	result, err := h.auth.VerifyOTP(c.Request.Context(), strings.TrimSpace(req.Email), strings.TrimSpace(req.OTP), clientInfo(c))
	if err != nil {
		RespondWithMappedError(c, err, verifyOTPErrorCases, http.StatusInternalServerError, "otp verification failed")
		return
	}

	h.respondLogin(c, result)
}

func (h *AuthHandler) refresh(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid session"))
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), token, clientInfo(c))
	if err != nil {
		RespondWithMappedError(c, err, refreshErrorCases, http.StatusInternalServerError, "failed to refresh session")
		return
	}

	h.respondLogin(c, result)
}

func (h *AuthHandler) logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	if token != "" {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			logger.FromContext(c.Request.Context(), h.logger).Error("logout failed", zap.Error(err))
		}
	}

	h.setRefreshCookie(c, "", -1)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) respondLogin(c *gin.Context, result *usecase.LoginResult) {
	resp := LoginResponse{
		Status: string(result.Status),
		Role:   result.Role.String(),
	}

	if result.Status == usecase.StatusLoginSuccess {
		accessToken := result.AccessToken
		resp.AccessToken = &accessToken
		resp.TokenType = "Bearer"
		resp.ExpiresIn = secondsUntil(result.AccessTokenExpiresAt)
		h.setRefreshCookie(c, result.RefreshToken, int(h.cookie.MaxAge/time.Second))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(h.cookie.Name, value, maxAge, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func clientInfo(c *gin.Context) usecase.ClientInfo {
	return usecase.ClientInfo{
		IPAddress: strings.TrimSpace(c.ClientIP()),
		UserAgent: strings.TrimSpace(c.Request.UserAgent()),
	}
}

func secondsUntil(at time.Time) int {
	if at.IsZero() {
		return 0
	}
	remaining := time.Until(at)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds())
}
