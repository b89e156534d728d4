package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	SMTP      SMTPSettings      `mapstructure:"smtp"`
	Notify    NotifySettings    `mapstructure:"notify"`
	Cookie    CookieSettings    `mapstructure:"cookie"`
	Password  PasswordSettings  `mapstructure:"password"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name            string        `mapstructure:"name"`
	Env             string        `mapstructure:"env"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// DSN renders a libpq connection URL for the configured database.
func (p PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// RedisSettings configures the Redis connection backing rate limits.
type RedisSettings struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	DB              int    `mapstructure:"db"`
	Password        string `mapstructure:"password"`
	TLSEnabled      bool   `mapstructure:"tls_enabled"`
	RateLimitPrefix string `mapstructure:"rate_limit_prefix"`
}

// KafkaSettings configures the domain event producer.
type KafkaSettings struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// JWTSettings configures access token signing. HS256 uses Secret (base64), RS256 loads
// PEM keys from KeyDirectory.
type JWTSettings struct {
	Algorithm       string        `mapstructure:"algorithm"`
	Secret          string        `mapstructure:"secret"`
	KeyDirectory    string        `mapstructure:"key_directory"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// AuthSettings holds the lockout and step-up policy.
type AuthSettings struct {
	LockoutThreshold int           `mapstructure:"lockout_threshold"`
	LockoutDuration  time.Duration `mapstructure:"lockout_duration"`
	OTPTTL           time.Duration `mapstructure:"otp_ttl"`
	OTPMaxAttempts   int           `mapstructure:"otp_max_attempts"`
	TwoFactorDefault bool          `mapstructure:"two_factor_default"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	Enabled              bool          `mapstructure:"enabled"`
	WindowDuration       time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts     int           `mapstructure:"login_max_attempts"`
	RegisterMaxAttempts  int           `mapstructure:"register_max_attempts"`
	VerifyOTPMaxAttempts int           `mapstructure:"verify_otp_max_attempts"`
	RefreshMaxAttempts   int           `mapstructure:"refresh_max_attempts"`
}

// SMTPSettings configures OTP mail delivery. An empty Host selects the logging notifier.
type SMTPSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type NotifySettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// CookieSettings controls the refresh token cookie.
type CookieSettings struct {
	Name     string        `mapstructure:"name"`
	Path     string        `mapstructure:"path"`
	Domain   string        `mapstructure:"domain"`
	Secure   bool          `mapstructure:"secure"`
	SameSite string        `mapstructure:"same_site"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

type PasswordSettings struct {
	MinLength int `mapstructure:"min_length"`
	MinScore  int `mapstructure:"min_score"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	Enabled      bool    `mapstructure:"enabled"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("IAM")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.shutdown_timeout",
		"app.cors_allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.rate_limit_prefix",
		"kafka.enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.algorithm",
		"jwt.secret",
		"jwt.key_directory",
		"jwt.issuer",
		"jwt.access_token_ttl",
		"jwt.refresh_token_ttl",
		"auth.lockout_threshold",
		"auth.lockout_duration",
		"auth.otp_ttl",
		"auth.otp_max_attempts",
		"auth.two_factor_default",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"rate_limit.enabled",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.register_max_attempts",
		"rate_limit.verify_otp_max_attempts",
		"rate_limit.refresh_max_attempts",
		"smtp.host",
		"smtp.port",
		"smtp.username",
		"smtp.password",
		"smtp.from",
		"notify.timeout",
		"cookie.name",
		"cookie.path",
		"cookie.domain",
		"cookie.secure",
		"cookie.same_site",
		"cookie.max_age",
		"password.min_length",
		"password.min_score",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"telemetry.enabled",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *AppConfig) Validate() error {
	var errs []error

	switch strings.ToUpper(c.JWT.Algorithm) {
	case "HS256":
		if strings.TrimSpace(c.JWT.Secret) == "" {
			errs = append(errs, errors.New("jwt.secret is required for HS256"))
		}
	case "RS256":
		if strings.TrimSpace(c.JWT.KeyDirectory) == "" {
			errs = append(errs, errors.New("jwt.key_directory is required for RS256"))
		}
	default:
		errs = append(errs, fmt.Errorf("jwt.algorithm %q is not supported", c.JWT.Algorithm))
	}

	if c.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.access_token_ttl must be positive"))
	}
	if c.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.refresh_token_ttl must be positive"))
	}
	if c.Auth.OTPTTL <= 0 {
		errs = append(errs, errors.New("auth.otp_ttl must be positive"))
	}
	if c.Auth.LockoutThreshold < 0 {
		errs = append(errs, errors.New("auth.lockout_threshold must not be negative"))
	}
	if c.Auth.LockoutDuration < 0 {
		errs = append(errs, errors.New("auth.lockout_duration must not be negative"))
	}
	if c.Argon2.Iterations == 0 || c.Argon2.Memory == 0 || c.Argon2.Parallelism == 0 {
		errs = append(errs, errors.New("argon2 parameters must be positive"))
	}
	if c.App.Port <= 0 {
		errs = append(errs, errors.New("app.port must be positive"))
	}
	if c.IsProduction() && strings.TrimSpace(c.SMTP.Host) == "" {
		errs = append(errs, errors.New("smtp.host is required in production"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production defaults.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "identity-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.shutdown_timeout", "15s")
	v.SetDefault("app.cors_allowed_origins", []string{})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "identity")
	v.SetDefault("postgres.password", "identity_password")
	v.SetDefault("postgres.database", "securehealth")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.rate_limit_prefix", "identity:ratelimit")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "identity")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.key_directory", "./secrets")
	v.SetDefault("jwt.issuer", "securehealth-identity")
	v.SetDefault("jwt.access_token_ttl", "15m")
	v.SetDefault("jwt.refresh_token_ttl", "168h")

	v.SetDefault("auth.lockout_threshold", 5)
	v.SetDefault("auth.lockout_duration", "15m")
	v.SetDefault("auth.otp_ttl", "5m")
	v.SetDefault("auth.otp_max_attempts", 5)
	v.SetDefault("auth.two_factor_default", true)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 10)
	v.SetDefault("rate_limit.register_max_attempts", 3)
	v.SetDefault("rate_limit.verify_otp_max_attempts", 10)
	v.SetDefault("rate_limit.refresh_max_attempts", 20)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "no-reply@securehealth.local")

	v.SetDefault("notify.timeout", "10s")

	v.SetDefault("cookie.name", "refreshToken")
	v.SetDefault("cookie.path", "/api/auth")
	v.SetDefault("cookie.secure", true)
	v.SetDefault("cookie.same_site", "strict")
	v.SetDefault("cookie.max_age", "168h")

	v.SetDefault("password.min_length", 12)
	v.SetDefault("password.min_score", 0)

	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "identity-service")
	v.SetDefault("telemetry.sampling_rate", 1.0)
	v.SetDefault("telemetry.enabled", false)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "IAM_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
