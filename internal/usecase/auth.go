package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/core/domain"
	"github.com/securehealth/identity/internal/core/port"
	"github.com/securehealth/identity/internal/infra/logger"
	"github.com/securehealth/identity/internal/infra/security"
	"github.com/securehealth/identity/internal/infra/telemetry"
	"github.com/securehealth/identity/internal/repository"
)

const (
	tracerName        = "github.com/securehealth/identity/internal/usecase"
	refreshTokenBytes = 32

	sessionSourceLogin   = "login"
	sessionSourceOTP     = "otp"
	sessionSourceRefresh = "refresh"

	revokeReasonLogout   = "logout"
	revokeReasonRotation = "rotation"
)

var (
	// ErrDuplicateAccount indicates the email is already registered.
	ErrDuplicateAccount = errors.New("email already taken")
	// ErrInvalidCredentials indicates an unknown email or a wrong password. Both share one message.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is locked after repeated failures.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountNotFound indicates OTP verification for an unknown email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidOrExpiredOTP indicates a missing, wrong, expired or exhausted OTP.
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired otp")
	// ErrTokenSigning indicates the access token could not be signed.
	ErrTokenSigning = errors.New("token signing failed")
	// ErrInvalidSession indicates a refresh token that is unknown, revoked or expired.
	ErrInvalidSession = errors.New("invalid session")
	// ErrInvalidInput indicates a request that fails basic shape validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrWeakPassword indicates the password policy rejected the supplied password.
	ErrWeakPassword = errors.New("password does not satisfy policy")
)

// LoginStatus is the outcome of a successful credential check.
type LoginStatus string

const (
	StatusLoginSuccess LoginStatus = "LOGIN_SUCCESS"
	StatusOTPRequired  LoginStatus = "OTP_REQUIRED"
)

// LoginResult is returned by Login, VerifyOTP and Refresh. Token fields are empty when
// Status is StatusOTPRequired.
type LoginResult struct {
	Status                LoginStatus
	AccountID             string
	Email                 string
	Role                  domain.Role
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// ClientInfo carries request metadata recorded on new sessions.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// RegisterInput describes a new account. TwoFactorEnabled overrides the role default when set.
type RegisterInput struct {
	Email            string
	Password         string
	Role             domain.Role
	TwoFactorEnabled *bool
}

// AuthPolicy holds the tunable parameters of the authentication engine.
type AuthPolicy struct {
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	Lockout          domain.LockoutPolicy
	OTPTTL           time.Duration
	OTPMaxAttempts   int
	TwoFactorDefault bool
	NotifyTimeout    time.Duration
}

// DefaultAuthPolicy returns the production defaults.
func DefaultAuthPolicy() AuthPolicy {
	return AuthPolicy{
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		Lockout:          domain.LockoutPolicy{Threshold: 5, Duration: 15 * time.Minute},
		OTPTTL:           5 * time.Minute,
		OTPMaxAttempts:   5,
		TwoFactorDefault: true,
		NotifyTimeout:    10 * time.Second,
	}
}

// AuthMetrics receives authentication outcomes.
type AuthMetrics interface {
	LoginAttempt(outcome string)
	OTPVerification(outcome string)
	Registration(role string)
	Lockout()
	SessionCreated(source string)
	SessionRevoked(reason string)
}

// PasswordPolicy rejects passwords that do not satisfy the configured rules.
type PasswordPolicy interface {
	Validate(password string, userInputs ...string) error
}

// AuthService is the authentication engine: registration, password login with lockout,
// OTP step-up, session issuance, rotation and revocation.
type AuthService struct {
	tx        port.Transactor
	hasher    port.PasswordHasher
	issuer    port.TokenIssuer
	notifier  port.Notifier
	events    port.EventPublisher
	metrics   AuthMetrics
	passwords PasswordPolicy
	policy    AuthPolicy
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newOTP    func() (string, error)
	// decoyHash is verified against when the email is unknown, so both login
	// failures cost one hash verification.
	decoyHash string
}

// NewAuthService constructs an AuthService. Zero policy fields fall back to DefaultAuthPolicy.
func NewAuthService(
	tx port.Transactor,
	hasher port.PasswordHasher,
	issuer port.TokenIssuer,
	notifier port.Notifier,
	policy AuthPolicy,
	log *zap.Logger,
) (*AuthService, error) {
	if tx == nil || hasher == nil || issuer == nil || notifier == nil {
		return nil, fmt.Errorf("auth service dependencies are required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	decoyPassword, err := security.GenerateSecureToken(24)
	if err != nil {
		return nil, err
	}
	decoy, err := hasher.Hash(decoyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare decoy hash: %w", err)
	}

	return &AuthService{
		tx:        tx,
		hasher:    hasher,
		issuer:    issuer,
		notifier:  notifier,
		policy:    withPolicyDefaults(policy),
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		now:       func() time.Time { return time.Now().UTC() },
		newOTP:    security.GenerateOTP,
		decoyHash: decoy,
	}, nil
}

func withPolicyDefaults(p AuthPolicy) AuthPolicy {
	d := DefaultAuthPolicy()
	if p.AccessTokenTTL <= 0 {
		p.AccessTokenTTL = d.AccessTokenTTL
	}
	if p.RefreshTokenTTL <= 0 {
		p.RefreshTokenTTL = d.RefreshTokenTTL
	}
	if p.OTPTTL <= 0 {
		p.OTPTTL = d.OTPTTL
	}
	if p.NotifyTimeout <= 0 {
		p.NotifyTimeout = d.NotifyTimeout
	}
	return p
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithEvents injects the domain event publisher.
func (s *AuthService) WithEvents(events port.EventPublisher) *AuthService {
	s.events = events
	return s
}

// WithMetrics injects an outcome recorder.
func (s *AuthService) WithMetrics(metrics AuthMetrics) *AuthService {
	s.metrics = metrics
	return s
}

// WithPasswordPolicy enables password strength checks on registration.
func (s *AuthService) WithPasswordPolicy(policy PasswordPolicy) *AuthService {
	s.passwords = policy
	return s
}

// WithOTPGenerator replaces the OTP source (primarily for tests).
func (s *AuthService) WithOTPGenerator(gen func() (string, error)) {
	if gen != nil {
		s.newOTP = gen
	}
}

// Policy returns the effective policy.
func (s *AuthService) Policy() AuthPolicy {
	return s.policy
}

// Register creates an account with an argon2id hash of the password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, s.fail(span, fmt.Errorf("%w: email and password are required", ErrInvalidInput))
	}
	if !in.Role.Valid() {
		return nil, s.fail(span, fmt.Errorf("%w: %w", ErrInvalidInput, domain.ErrUnknownRole))
	}

	if s.passwords != nil {
		if err := s.passwords.Validate(in.Password, email); err != nil {
			return nil, s.fail(span, fmt.Errorf("%w: %w", ErrWeakPassword, err))
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("hash password: %w", err))
	}

	twoFactor := s.policy.TwoFactorDefault && in.Role.RequiresStepUp()
	if in.TwoFactorEnabled != nil {
		twoFactor = *in.TwoFactorEnabled
	}

	account := domain.Account{
		ID:               uuid.NewString(),
		Email:            email,
		PasswordHash:     hash,
		Role:             in.Role,
		TwoFactorEnabled: twoFactor,
		CreatedAt:        s.now(),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, stores port.Stores) error {
		exists, err := stores.Accounts.ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return ErrDuplicateAccount
		}
		return stores.Accounts.Save(ctx, account)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			err = ErrDuplicateAccount
		}
		if !errors.Is(err, ErrDuplicateAccount) {
			err = fmt.Errorf("register account: %w", err)
		}
		return nil, s.fail(span, err)
	}

	span.SetAttributes(attribute.String("account.role", account.Role.String()))
	s.recordRegistration(account.Role)
	s.publish(ctx, "account registered", func(ctx context.Context, events port.EventPublisher) error {
		return events.PublishAccountRegistered(ctx, domain.AccountRegisteredEvent{
			EventID:          uuid.NewString(),
			AccountID:        account.ID,
			Email:            account.Email,
			Role:             account.Role,
			TwoFactorEnabled: account.TwoFactorEnabled,
			RegisteredAt:     account.CreatedAt,
		})
	})

	logger.FromContext(ctx, s.logger).Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
		zap.String("role", account.Role.String()),
	)

	registered := account
	registered.PasswordHash = ""
	return &registered, nil
}

// Login verifies the password, applies the lockout policy and either issues a session or,
// for step-up accounts, stores and dispatches an OTP.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	now := s.now()
	var (
		result   *LoginResult
		failure  error
		otpCode  string
		locked   *domain.AccountLockedEvent
		issued   *domain.Session
		lockedBy domain.Account
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores port.Stores) error {
		account, err := stores.Accounts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				_, _ = s.hasher.Verify(password, s.decoyHash)
				failure = ErrInvalidCredentials
				return nil
			}
			return fmt.Errorf("load account: %w", err)
		}

		dirty := account.ReleaseExpiredLock(now)
		if account.LockedAt(now) {
			failure = ErrAccountLocked
			return nil
		}

		ok, err := s.hasher.Verify(password, account.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			if account.RecordFailedAttempt(now, s.policy.Lockout) {
				lockedBy = *account
				locked = &domain.AccountLockedEvent{
					EventID:        uuid.NewString(),
					AccountID:      account.ID,
					FailedAttempts: account.FailedAttempts,
					LockedAt:       now,
					LockoutUntil:   account.LockoutUntil,
					IPAddress:      optionalString(client.IPAddress),
				}
			}
			if err := stores.Accounts.Save(ctx, *account); err != nil {
				return fmt.Errorf("record failed attempt: %w", err)
			}
			failure = ErrInvalidCredentials
			return nil
		}

		if account.ResetFailedAttempts() {
			dirty = true
		}

		if account.RequiresStepUp() {
			code, err := s.newOTP()
			if err != nil {
				return fmt.Errorf("generate otp: %w", err)
			}
			account.IssueOTP(code, now.Add(s.policy.OTPTTL))
			if err := stores.Accounts.Save(ctx, *account); err != nil {
				return fmt.Errorf("store otp: %w", err)
			}
			otpCode = code
			result = &LoginResult{
				Status:    StatusOTPRequired,
				AccountID: account.ID,
				Email:     account.Email,
				Role:      account.Role,
			}
			return nil
		}

		if dirty {
			if err := stores.Accounts.Save(ctx, *account); err != nil {
				return fmt.Errorf("reset failed attempts: %w", err)
			}
		}

		result, issued, err = s.issueSession(ctx, stores.Sessions, *account, client, now)
		return err
	})
	if err != nil {
		s.recordLogin(telemetryOutcome(err))
		return nil, s.fail(span, s.wrapInfra("login", err))
	}

	if locked != nil {
		s.recordLockout()
		logger.FromContext(ctx, s.logger).Warn("account locked after failed logins",
			zap.String("account_id", lockedBy.ID),
			zap.Int("failed_attempts", lockedBy.FailedAttempts),
			zap.String("ip", logger.MaskIP(client.IPAddress)),
		)
		event := *locked
		s.publish(ctx, "account locked", func(ctx context.Context, events port.EventPublisher) error {
			return events.PublishAccountLocked(ctx, event)
		})
	}

	if failure != nil {
		s.recordLogin(telemetryOutcome(failure))
		logger.FromContext(ctx, s.logger).Info("login rejected",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("ip", logger.MaskIP(client.IPAddress)),
			zap.String("reason", failure.Error()),
		)
		return nil, s.fail(span, failure)
	}

	span.SetAttributes(
		attribute.String("account.role", result.Role.String()),
		attribute.String("login.status", string(result.Status)),
	)

	if result.Status == StatusOTPRequired {
		s.recordLogin(telemetry.OutcomeOTPRequired)
		s.dispatchOTP(ctx, result.Email, otpCode)
		return result, nil
	}

	s.recordLogin(telemetry.OutcomeSuccess)
	s.afterSessionIssued(ctx, *issued, result.Role, sessionSourceLogin)
	return result, nil
}

// VerifyOTP completes a step-up login. A wrong guess leaves the outstanding code in place
// but consumes one attempt from its budget.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string, client ClientInfo) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifyOTP")
	defer span.End()

	now := s.now()
	var (
		result  *LoginResult
		failure error
		issued  *domain.Session
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores port.Stores) error {
		account, err := stores.Accounts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				failure = ErrAccountNotFound
				return nil
			}
			return fmt.Errorf("load account: %w", err)
		}

		if account.LockedAt(now) {
			failure = ErrAccountLocked
			return nil
		}

		if !account.MatchOTP(code, now, s.policy.OTPMaxAttempts) {
			failure = ErrInvalidOrExpiredOTP
			if account.OTP == nil {
				return nil
			}
			account.RecordOTPFailure()
			if err := stores.Accounts.Save(ctx, *account); err != nil {
				return fmt.Errorf("record otp failure: %w", err)
			}
			return nil
		}

		account.ClearOTP()
		if err := stores.Accounts.Save(ctx, *account); err != nil {
			return fmt.Errorf("clear otp: %w", err)
		}

		result, issued, err = s.issueSession(ctx, stores.Sessions, *account, client, now)
		return err
	})
	if err != nil {
		s.recordOTP(telemetry.OutcomeError)
		return nil, s.fail(span, s.wrapInfra("verify otp", err))
	}
	if failure != nil {
		s.recordOTP(telemetryOutcome(failure))
		logger.FromContext(ctx, s.logger).Info("otp verification rejected",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("ip", logger.MaskIP(client.IPAddress)),
			zap.String("reason", failure.Error()),
		)
		return nil, s.fail(span, failure)
	}

	s.recordOTP(telemetry.OutcomeSuccess)
	span.SetAttributes(attribute.String("account.role", result.Role.String()))
	s.afterSessionIssued(ctx, *issued, result.Role, sessionSourceOTP)
	return result, nil
}

// Logout revokes the session identified by refreshToken. Empty, unknown and already
// revoked tokens succeed without changes.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if refreshToken == "" {
		return nil
	}

	now := s.now()
	hash := security.HashToken(refreshToken)
	var revoked *domain.Session

	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores port.Stores) error {
		session, err := stores.Sessions.FindByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("load session: %w", err)
		}
		if !session.Revoke(now) {
			return nil
		}
		if err := stores.Sessions.Save(ctx, *session); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
		revoked = session
		return nil
	})
	if err != nil {
		return s.fail(span, fmt.Errorf("logout: %w", err))
	}

	if revoked != nil {
		s.afterSessionRevoked(ctx, *revoked, revokeReasonLogout)
	}
	return nil
}

// Refresh rotates a session: the presented refresh token is revoked and a new access
// token and session are issued in the same transaction.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	if refreshToken == "" {
		return nil, s.fail(span, ErrInvalidSession)
	}

	now := s.now()
	hash := security.HashToken(refreshToken)
	var (
		result  *LoginResult
		failure error
		old     *domain.Session
		issued  *domain.Session
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, stores port.Stores) error {
		session, err := stores.Sessions.FindByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				failure = ErrInvalidSession
				return nil
			}
			return fmt.Errorf("load session: %w", err)
		}
		if !session.IsActive(now) {
			failure = ErrInvalidSession
			return nil
		}

		account, err := stores.Accounts.FindByID(ctx, session.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				failure = ErrInvalidSession
				return nil
			}
			return fmt.Errorf("load account: %w", err)
		}
		if account.LockedAt(now) {
			failure = ErrAccountLocked
			return nil
		}

		session.Revoke(now)
		if err := stores.Sessions.Save(ctx, *session); err != nil {
			return fmt.Errorf("revoke rotated session: %w", err)
		}
		old = session

		result, issued, err = s.issueSession(ctx, stores.Sessions, *account, client, now)
		return err
	})
	if err != nil {
		return nil, s.fail(span, s.wrapInfra("refresh", err))
	}
	if failure != nil {
		return nil, s.fail(span, failure)
	}

	s.afterSessionRevoked(ctx, *old, revokeReasonRotation)
	s.afterSessionIssued(ctx, *issued, result.Role, sessionSourceRefresh)
	return result, nil
}

func (s *AuthService) issueSession(ctx context.Context, sessions port.SessionRepository, account domain.Account, client ClientInfo, now time.Time) (*LoginResult, *domain.Session, error) {
	accessToken, err := s.issuer.SignAccessToken(account.Email, port.AccessClaims{
		AccountID: account.ID,
		Role:      account.Role.String(),
	}, s.policy.AccessTokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTokenSigning, err)
	}

	refreshToken, err := s.issuer.RandomOpaqueToken(refreshTokenBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	session := domain.Session{
		ID:               uuid.NewString(),
		AccountID:        account.ID,
		RefreshTokenHash: security.HashToken(refreshToken),
		IPAddress:        optionalString(client.IPAddress),
		UserAgent:        optionalString(client.UserAgent),
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.policy.RefreshTokenTTL),
	}
	if err := sessions.Save(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	return &LoginResult{
		Status:                StatusLoginSuccess,
		AccountID:             account.ID,
		Email:                 account.Email,
		Role:                  account.Role,
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  now.Add(s.policy.AccessTokenTTL),
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: session.ExpiresAt,
	}, &session, nil
}

// dispatchOTP delivers the code after commit. Delivery problems are logged and never undo
// the stored OTP.
func (s *AuthService) dispatchOTP(ctx context.Context, email, code string) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.policy.NotifyTimeout)
	defer cancel()

	if err := s.notifier.SendOTP(sendCtx, email, code); err != nil {
		logger.FromContext(ctx, s.logger).Error("otp delivery failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
	}
}

func (s *AuthService) afterSessionIssued(ctx context.Context, session domain.Session, role domain.Role, source string) {
	if s.metrics != nil {
		s.metrics.SessionCreated(source)
	}
	s.publish(ctx, "session created", func(ctx context.Context, events port.EventPublisher) error {
		return events.PublishSessionCreated(ctx, domain.SessionCreatedEvent{
			EventID:   uuid.NewString(),
			SessionID: session.ID,
			AccountID: session.AccountID,
			Role:      role,
			Source:    source,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			IPAddress: session.IPAddress,
			UserAgent: session.UserAgent,
		})
	})
}

func (s *AuthService) afterSessionRevoked(ctx context.Context, session domain.Session, reason string) {
	if s.metrics != nil {
		s.metrics.SessionRevoked(reason)
	}
	revokedAt := s.now()
	if session.RevokedAt != nil {
		revokedAt = *session.RevokedAt
	}
	s.publish(ctx, "session revoked", func(ctx context.Context, events port.EventPublisher) error {
		return events.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
			EventID:   uuid.NewString(),
			SessionID: session.ID,
			AccountID: session.AccountID,
			Reason:    reason,
			RevokedAt: revokedAt,
		})
	})
}

func (s *AuthService) publish(ctx context.Context, what string, fn func(context.Context, port.EventPublisher) error) {
	if s.events == nil {
		return
	}
	if err := fn(ctx, s.events); err != nil {
		logger.FromContext(ctx, s.logger).Warn("publish event failed", zap.String("event", what), zap.Error(err))
	}
}

func (s *AuthService) wrapInfra(op string, err error) error {
	if errors.Is(err, ErrTokenSigning) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *AuthService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *AuthService) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempt(outcome)
	}
}

func (s *AuthService) recordOTP(outcome string) {
	if s.metrics != nil {
		s.metrics.OTPVerification(outcome)
	}
}

func (s *AuthService) recordRegistration(role domain.Role) {
	if s.metrics != nil {
		s.metrics.Registration(role.String())
	}
}

func (s *AuthService) recordLockout() {
	if s.metrics != nil {
		s.metrics.Lockout()
	}
}

func telemetryOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return telemetry.OutcomeInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return telemetry.OutcomeLocked
	case errors.Is(err, ErrInvalidOrExpiredOTP), errors.Is(err, ErrAccountNotFound):
		return telemetry.OutcomeInvalidOTP
	default:
		return telemetry.OutcomeError
	}
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
