package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/securehealth/identity/internal/core/domain"
	"github.com/securehealth/identity/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()

	asyncProducer := newFakeAsyncProducer()
	producer := newProducer(asyncProducer, config.KafkaSettings{TopicPrefix: "identity"}, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "identity-service",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func decodeEnvelope(t *testing.T, msg *sarama.ProducerMessage) map[string]any {
	t.Helper()

	raw, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("encode message value: %v", err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return envelope
}

func TestPublishAccountRegistered(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	registeredAt := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)
	event := domain.AccountRegisteredEvent{
		EventID:          "event-123",
		AccountID:        "account-456",
		Email:            "doc@example.com",
		Role:             domain.RoleDoctor,
		TwoFactorEnabled: true,
		RegisteredAt:     registeredAt,
	}

	if err := publisher.PublishAccountRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishAccountRegistered returned error: %v", err)
	}

	msg := <-asyncProducer.input
	if msg.Topic != "identity.account.registered" {
		t.Fatalf("unexpected topic %s", msg.Topic)
	}
	key, err := msg.Key.Encode()
	if err != nil || string(key) != "account-456" {
		t.Fatalf("expected message key account-456, got %q (%v)", key, err)
	}

	envelope := decodeEnvelope(t, msg)
	if envelope["event_id"] != "event-123" || envelope["event_type"] != EventAccountRegistered {
		t.Fatalf("unexpected envelope header: %v", envelope)
	}
	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload missing: %v", envelope)
	}
	if payload["role"] != "DOCTOR" || payload["two_factor_enabled"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, leaked := payload["email"]; leaked {
		t.Fatalf("email must not be published: %v", payload)
	}
	metadata, _ := envelope["metadata"].(map[string]any)
	if metadata["service"] != "identity-service" {
		t.Fatalf("unexpected metadata: %v", metadata)
	}
}

func TestPublishSessionRevokedGeneratesEventID(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	event := domain.SessionRevokedEvent{
		SessionID: "session-1",
		AccountID: "account-1",
		Reason:    "logout",
		RevokedAt: time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC),
	}
	if err := publisher.PublishSessionRevoked(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionRevoked returned error: %v", err)
	}

	msg := <-asyncProducer.input
	if msg.Topic != "identity.session.revoked" {
		t.Fatalf("unexpected topic %s", msg.Topic)
	}
	envelope := decodeEnvelope(t, msg)
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatalf("expected generated event id")
	}
	payload := envelope["payload"].(map[string]any)
	if payload["reason"] != "logout" || payload["session_id"] != "session-1" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestPublishRespectsContextCancellation(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	// Fill the single buffered slot so the next send blocks.
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishAccountLocked(ctx, domain.AccountLockedEvent{AccountID: "account-1"})
	if err == nil {
		t.Fatalf("expected context error")
	}
}

func TestTopicName(t *testing.T) {
	p := &Producer{cfg: config.KafkaSettings{TopicPrefix: "identity"}}
	if got := p.TopicName("session.created"); got != "identity.session.created" {
		t.Fatalf("unexpected topic %s", got)
	}
	if got := p.TopicName("identity.session.created"); got != "identity.session.created" {
		t.Fatalf("prefix applied twice: %s", got)
	}

	bare := &Producer{}
	if got := bare.TopicName("session.created"); got != "session.created" {
		t.Fatalf("unexpected bare topic %s", got)
	}
}

func TestStubPublisherLogsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := NewStubPublisher(zap.New(core))

	if err := stub.PublishSessionCreated(context.Background(), domain.SessionCreatedEvent{
		SessionID: "session-1",
		AccountID: "account-1",
		Source:    "login",
	}); err != nil {
		t.Fatalf("PublishSessionCreated returned error: %v", err)
	}

	entries := logs.FilterField(zap.String("event_type", EventSessionCreated)).All()
	if len(entries) != 1 {
		t.Fatalf("expected one stub log entry, got %d", len(logs.All()))
	}
	if entries[0].ContextMap()["session_id"] != "session-1" {
		t.Fatalf("unexpected fields: %v", entries[0].ContextMap())
	}
}
