package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/core/port"
	appLogger "github.com/securehealth/identity/internal/infra/logger"
)

const (
	rateLimitProblemType  = "https://identity.securehealth.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// RateLimiter enforces sliding-window limits backed by a RateLimitStore. Store failures
// fail open.
type RateLimiter struct {
	store    port.RateLimitStore
	logger   *zap.Logger
	now      func() time.Time
	rejected *prometheus.CounterVec
}

type windowState struct {
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// WithRejectionCounter registers a counter of rejected requests per rule.
func (rl *RateLimiter) WithRejectionCounter(reg prometheus.Registerer) *RateLimiter {
	if reg == nil {
		return rl
	}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the sliding-window rate limiter, by rule.",
	}, []string{"rule"})
	counter, err := registerCollector(reg, counter)
	if err != nil {
		rl.logger.Warn("register rate limit counter failed", zap.Error(err))
		return rl
	}
	rl.rejected = counter
	return rl
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// RateLimit returns a Gin middleware enforcing a single rule. Invalid rules disable the middleware.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rl == nil || rl.store == nil || rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		identifier, ok := rule.Identifier(c)
		if !ok || identifier == "" {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", rule.Name, identifier)
		state, err := rl.evaluate(c, rule, key, rl.now())
		if err != nil {
			rl.logger.Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.String("identifier", appLogger.MaskIP(identifier)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		writeRateLimitHeaders(c, state)
		if !state.allowed {
			if rl.rejected != nil {
				rl.rejected.WithLabelValues(rule.Name).Inc()
			}
			rl.logger.Info("request rate limited",
				zap.String("rule", rule.Name),
				zap.String("identifier", appLogger.MaskIP(identifier)),
			)
			abortRateLimited(c, state)
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) evaluate(c *gin.Context, rule RateLimitRule, key string, now time.Time) (windowState, error) {
	ctx := c.Request.Context()

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return windowState{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return windowState{}, err
	}

	oldest, hasAttempts, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return windowState{}, err
	}

	state := windowState{
		allowed: true,
		limit:   rule.Limit,
		reset:   now.Add(rule.Window),
	}
	if hasAttempts {
		state.reset = oldest.Add(rule.Window)
	}

	if count >= rule.Limit {
		state.allowed = false
		state.retryAfter = nonNegative(state.reset.Sub(now))
		return state, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return windowState{}, err
	}

	state.remaining = rule.Limit - count - 1
	if state.remaining < 0 {
		state.remaining = 0
	}
	state.retryAfter = nonNegative(state.reset.Sub(now))
	return state, nil
}

func writeRateLimitHeaders(c *gin.Context, state windowState) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(state.limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(state.remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(state.reset.Unix(), 10))

	if !state.allowed {
		headers.Set("Retry-After", strconv.Itoa(ceilSeconds(state.retryAfter)))
	}
}

func abortRateLimited(c *gin.Context, state windowState) {
	retrySeconds := ceilSeconds(state.retryAfter)

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", retrySeconds),
		Instance:   instance,
		RetryAfter: retrySeconds,
		TraceID:    GetTraceID(c),
	})
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(nonNegative(d).Seconds()))
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
