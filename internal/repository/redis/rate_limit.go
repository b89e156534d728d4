package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"

	"github.com/securehealth/identity/internal/core/port"
)

const defaultRateLimitPrefix = "identity:ratelimit"

var errNonPositiveWindow = errors.New("window must be positive")

// SlidingWindowConfig defines configuration for the sliding window limiter.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitRepository keeps attempt timestamps per identifier in Redis sorted sets.
type RateLimitRepository struct {
	client red.UniversalClient
	cfg    SlidingWindowConfig
}

// NewRateLimitRepository constructs a repository using the provided Redis client and config.
func NewRateLimitRepository(client red.UniversalClient, cfg SlidingWindowConfig) *RateLimitRepository {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultRateLimitPrefix
	}
	return &RateLimitRepository{client: client, cfg: cfg}
}

// RecordAttempt adds an attempt at the supplied instant and refreshes the key TTL atomically.
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := r.key(identifier)
	member := red.Z{
		Score:  float64(at.UnixNano()),
		Member: strconv.FormatInt(at.UnixNano(), 10) + ":" + uuid.NewString(),
	}

	_, err := r.client.TxPipelined(ctx, func(pipe red.Pipeliner) error {
		pipe.ZAdd(ctx, key, member)
		if r.cfg.TTL > 0 {
			pipe.Expire(ctx, key, r.cfg.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record attempt: %w", err)
	}
	return nil
}

// CountAttempts returns how many attempts occurred within the window ending at reference.
func (r *RateLimitRepository) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errNonPositiveWindow
	}

	lower, upper := scoreRange(window, reference)
	count, err := r.client.ZCount(ctx, r.key(identifier), lower, upper).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return int(count), nil
}

// TrimWindow drops attempts older than the window relative to reference.
func (r *RateLimitRepository) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errNonPositiveWindow
	}

	lower, _ := scoreRange(window, reference)
	if err := r.client.ZRemRangeByScore(ctx, r.key(identifier), "-inf", "("+lower).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}
	return nil
}

// OldestAttempt returns the oldest attempt remaining inside the active window.
func (r *RateLimitRepository) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errNonPositiveWindow
	}

	lower, upper := scoreRange(window, reference)
	values, err := r.client.ZRangeByScoreWithScores(ctx, r.key(identifier), &red.ZRangeBy{
		Min:   lower,
		Max:   upper,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	if len(values) == 0 {
		return time.Time{}, false, nil
	}

	return time.Unix(0, int64(values[0].Score)).UTC(), true, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	return r.cfg.KeyPrefix + ":" + identifier
}

func scoreRange(window time.Duration, reference time.Time) (string, string) {
	lower := strconv.FormatInt(reference.Add(-window).UnixNano(), 10)
	upper := strconv.FormatInt(reference.UnixNano(), 10)
	return lower, upper
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
