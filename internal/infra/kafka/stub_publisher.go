package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/core/domain"
	"github.com/securehealth/identity/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.String("account_id", accountID),
			zap.Time("timestamp", at.UTC()),
		}, fields...)...,
	)
}

// PublishAccountRegistered logs account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.logEvent(EventAccountRegistered, event.AccountID, event.RegisteredAt,
		zap.String("role", event.Role.String()),
		zap.Bool("two_factor_enabled", event.TwoFactorEnabled),
	)
	return nil
}

// PublishAccountLocked logs account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	fields := []zap.Field{zap.Int("failed_attempts", event.FailedAttempts)}
	if event.LockoutUntil != nil {
		fields = append(fields, zap.Time("lockout_until", *event.LockoutUntil))
	}
	p.logEvent(EventAccountLocked, event.AccountID, event.LockedAt, fields...)
	return nil
}

// PublishSessionCreated logs session.created events.
func (p *StubPublisher) PublishSessionCreated(_ context.Context, event domain.SessionCreatedEvent) error {
	p.logEvent(EventSessionCreated, event.AccountID, event.CreatedAt,
		zap.String("session_id", event.SessionID),
		zap.String("source", event.Source),
		zap.Time("expires_at", event.ExpiresAt),
	)
	return nil
}

// PublishSessionRevoked logs session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.logEvent(EventSessionRevoked, event.AccountID, event.RevokedAt,
		zap.String("session_id", event.SessionID),
		zap.String("reason", event.Reason),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
