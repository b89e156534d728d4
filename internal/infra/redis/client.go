package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/infra/config"
)

const pingTimeout = 5 * time.Second

// Client owns the connection pool backing the rate limit store.
type Client struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewClient dials Redis and fails fast when the server does not answer a ping.
func NewClient(ctx context.Context, cfg config.RedisSettings, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rdb := redis.NewClient(options(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", rdb.Options().Addr, err)
	}

	logger.Info("redis connected",
		zap.String("addr", rdb.Options().Addr),
		zap.Int("db", cfg.DB),
		zap.Bool("tls", cfg.TLSEnabled),
	)
	return &Client{rdb: rdb, logger: logger}, nil
}

func options(cfg config.RedisSettings) *redis.Options {
	opts := &redis.Options{
		Addr:            net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        10,
		MinIdleConns:    2,
		MaxRetries:      3,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		PoolTimeout:     2 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: cfg.Host}
	}
	return opts
}

// Redis exposes the underlying client to repositories.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// HealthCheck pings the server; used by the readiness probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return nil
}

// RegisterPoolMetrics exports connection pool gauges.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	gauge := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "identity",
			Subsystem: "redis_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(c.rdb.PoolStats())) })
	}

	collectors := []prometheus.Collector{
		gauge("total_connections", "Connections currently held by the pool.", func(s *redis.PoolStats) uint32 { return s.TotalConns }),
		gauge("idle_connections", "Idle connections in the pool.", func(s *redis.PoolStats) uint32 { return s.IdleConns }),
		gauge("timeouts", "Times a caller waited past the pool timeout.", func(s *redis.PoolStats) uint32 { return s.Timeouts }),
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return fmt.Errorf("register redis pool metric: %w", err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	c.logger.Info("redis connection closed")
	return nil
}
