package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/core/domain"
	"github.com/securehealth/identity/internal/core/port"
	"github.com/securehealth/identity/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	EventAccountRegistered = "account.registered"
	EventAccountLocked     = "account.locked"
	EventSessionCreated    = "session.created"
	EventSessionRevoked    = "session.revoked"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	body, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	select {
	case p.producer.Input() <- p.producer.Send(eventType, accountID, body):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes identity.account.registered events. The email is not
// part of the payload.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID        string    `json:"account_id"`
		Role             string    `json:"role"`
		TwoFactorEnabled bool      `json:"two_factor_enabled"`
		RegisteredAt     time.Time `json:"registered_at"`
	}{
		AccountID:        event.AccountID,
		Role:             event.Role.String(),
		TwoFactorEnabled: event.TwoFactorEnabled,
		RegisteredAt:     event.RegisteredAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventAccountRegistered, event.AccountID, event.RegisteredAt, payload)
}

// PublishAccountLocked publishes identity.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		AccountID      string     `json:"account_id"`
		FailedAttempts int        `json:"failed_attempts"`
		LockedAt       time.Time  `json:"locked_at"`
		LockoutUntil   *time.Time `json:"lockout_until,omitempty"`
		IPAddress      *string    `json:"ip_address,omitempty"`
	}{
		AccountID:      event.AccountID,
		FailedAttempts: event.FailedAttempts,
		LockedAt:       event.LockedAt.UTC(),
		LockoutUntil:   event.LockoutUntil,
		IPAddress:      event.IPAddress,
	}
	return p.publish(ctx, event.EventID, EventAccountLocked, event.AccountID, event.LockedAt, payload)
}

// PublishSessionCreated publishes identity.session.created events.
func (p *EventPublisher) PublishSessionCreated(ctx context.Context, event domain.SessionCreatedEvent) error {
	payload := struct {
		SessionID string    `json:"session_id"`
		AccountID string    `json:"account_id"`
		Role      string    `json:"role"`
		Source    string    `json:"source"`
		CreatedAt time.Time `json:"created_at"`
		ExpiresAt time.Time `json:"expires_at"`
		IPAddress *string   `json:"ip_address,omitempty"`
		UserAgent *string   `json:"user_agent,omitempty"`
	}{
		SessionID: event.SessionID,
		AccountID: event.AccountID,
		Role:      event.Role.String(),
		Source:    event.Source,
		CreatedAt: event.CreatedAt.UTC(),
		ExpiresAt: event.ExpiresAt.UTC(),
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
	}
	return p.publish(ctx, event.EventID, EventSessionCreated, event.AccountID, event.CreatedAt, payload)
}

// PublishSessionRevoked publishes identity.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID string    `json:"session_id"`
		AccountID string    `json:"account_id"`
		Reason    string    `json:"reason"`
		RevokedAt time.Time `json:"revoked_at"`
	}{
		SessionID: event.SessionID,
		AccountID: event.AccountID,
		Reason:    event.Reason,
		RevokedAt: event.RevokedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, EventSessionRevoked, event.AccountID, event.RevokedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
