package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/infra/config"
	"github.com/securehealth/identity/internal/transport/http/handlers"
	"github.com/securehealth/identity/internal/transport/http/middleware"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Auth        handlers.AuthService
	Keys        handlers.KeySetProvider
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.HTTPMetrics.Handler())
	if len(deps.Config.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("postgres", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(metricsHandler(deps.Gatherer)))
	r.GET("/.well-known/jwks.json", handlers.NewJWKSHandler(deps.Keys).Keys)

	if deps.Auth != nil {
		authHandler := handlers.NewAuthHandler(deps.Auth, handlers.NewCookieConfig(deps.Config.Cookie), deps.Logger)
		authHandler.RegisterRoutes(r.Group("/api/auth"), buildAuthMiddlewares(deps))
	}

	return r
}

func metricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func buildAuthMiddlewares(deps Dependencies) handlers.AuthRouteMiddlewares {
	settings := deps.Config.RateLimit
	if deps.RateLimiter == nil || !settings.Enabled {
		return handlers.AuthRouteMiddlewares{}
	}

	window := settings.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	limit := func(name string, max int) []gin.HandlerFunc {
		if max <= 0 {
			return nil
		}
		return []gin.HandlerFunc{deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       name,
			Limit:      max,
			Window:     window,
			Identifier: middleware.ClientIPIdentifier(),
		})}
	}

	return handlers.AuthRouteMiddlewares{
		Register:  limit("auth_register_ip", settings.RegisterMaxAttempts),
		Login:     limit("auth_login_ip", settings.LoginMaxAttempts),
		VerifyOTP: limit("auth_verify_otp_ip", settings.VerifyOTPMaxAttempts),
		Refresh:   limit("auth_refresh_ip", settings.RefreshMaxAttempts),
	}
}
