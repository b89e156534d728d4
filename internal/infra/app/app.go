package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/core/domain"
	"github.com/securehealth/identity/internal/core/port"
	"github.com/securehealth/identity/internal/infra/config"
	"github.com/securehealth/identity/internal/infra/database"
	kafkainfra "github.com/securehealth/identity/internal/infra/kafka"
	"github.com/securehealth/identity/internal/infra/logger"
	"github.com/securehealth/identity/internal/infra/notify"
	redisinfra "github.com/securehealth/identity/internal/infra/redis"
	"github.com/securehealth/identity/internal/infra/security"
	"github.com/securehealth/identity/internal/infra/telemetry"
	postgresrepo "github.com/securehealth/identity/internal/repository/postgres"
	redisrepo "github.com/securehealth/identity/internal/repository/redis"
	"github.com/securehealth/identity/internal/transport/http/middleware"
	"github.com/securehealth/identity/internal/transport/http/routes"
	"github.com/securehealth/identity/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracing  *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.build(ctx); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *Application) build(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tracing, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.tracing = tracing

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, cfg.Postgres, log); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	a.redis = redisClient

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return fmt.Errorf("configure argon2: %w", err)
	}

	issuer, err := newTokenIssuer(cfg.JWT)
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}
	if err := issuer.SelfTest(); err != nil {
		return fmt.Errorf("token issuer self-test: %w", err)
	}

	notifier, err := a.newNotifier()
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := redisClient.RegisterPoolMetrics(registry); err != nil {
		return err
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	store := postgresrepo.NewStore(pool)
	authService, err := usecase.NewAuthService(store, hasher, issuer, notifier, authPolicy(cfg), log)
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}
	authService.
		WithEvents(a.newEventPublisher()).
		WithMetrics(telemetry.NewAuthMetrics(registry)).
		WithPasswordPolicy(security.NewPasswordPolicy(security.PasswordPolicyConfig{
			MinLength: cfg.Password.MinLength,
			MinScore:  cfg.Password.MinScore,
		}))

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Redis(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log).WithRejectionCounter(registry)

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Auth:        authService,
		Keys:        issuer,
		RateLimiter: rateLimiter,
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,
		Database:    pool,
		Cache:       redisClient,
	})

	return nil
}

func newTokenIssuer(cfg config.JWTSettings) (*security.TokenIssuer, error) {
	opts := []security.TokenIssuerOption{security.WithIssuer(cfg.Issuer)}

	switch strings.ToUpper(strings.TrimSpace(cfg.Algorithm)) {
	case security.AlgorithmRS256:
		provider, err := security.NewFileKeyProvider(cfg.KeyDirectory)
		if err != nil {
			return nil, err
		}
		return security.NewRSATokenIssuer(provider, opts...)
	case "", security.AlgorithmHS256:
		return security.NewHMACTokenIssuer(cfg.Secret, opts...)
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.Algorithm)
	}
}

func authPolicy(cfg *config.AppConfig) usecase.AuthPolicy {
	return usecase.AuthPolicy{
		AccessTokenTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTokenTTL,
		Lockout: domain.LockoutPolicy{
			Threshold: cfg.Auth.LockoutThreshold,
			Duration:  cfg.Auth.LockoutDuration,
		},
		OTPTTL:           cfg.Auth.OTPTTL,
		OTPMaxAttempts:   cfg.Auth.OTPMaxAttempts,
		TwoFactorDefault: cfg.Auth.TwoFactorDefault,
		NotifyTimeout:    cfg.Notify.Timeout,
	}
}

func (a *Application) newNotifier() (port.Notifier, error) {
	if strings.TrimSpace(a.cfg.SMTP.Host) == "" {
		if a.cfg.IsProduction() {
			return nil, errors.New("smtp host is required in production")
		}
		a.logger.Warn("smtp host not configured, otp codes will be written to the log")
		return notify.NewLoggingNotifier(a.logger), nil
	}
	return notify.NewSMTPNotifier(a.cfg.SMTP, a.cfg.Auth.OTPTTL, a.logger)
}

func (a *Application) newEventPublisher() port.EventPublisher {
	if !a.cfg.Kafka.Enabled || len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka disabled, using stub publisher")
		return kafkainfra.NewStubPublisher(a.logger)
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(a.logger)
	}
	a.producer = producer

	a.logger.Info("kafka event publisher initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, a.cfg.App, a.logger)
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close(context.Background())

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting identity API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		timeout := a.cfg.App.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a.logger.Info("shutting down identity API")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

func (a *Application) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
