package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/pkg/config"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	"github.com/angelmondragon/estore-backend/pkg/logger"
	"github.com/angelmondragon/estore-backend/pkg/metrics"
	"github.com/angelmondragon/estore-backend/pkg/outbox"
	"github.com/angelmondragon/estore-backend/pkg/outbox/registry"
)

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	first := orderEvent(t, 0)
	second := orderEvent(t, 0)
	h := newHarness(t, []models.OutboxEvent{first, second}, errors.New("transient"), nil)

	found, err := h.svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !found {
		t.Fatal("expected batch to report rows")
	}
	if len(h.repo.failed) != 1 || h.repo.failed[0] != first.ID {
		t.Fatalf("first event should be marked failed, got %v", h.repo.failed)
	}
	if len(h.repo.published) != 1 || h.repo.published[0] != second.ID {
		t.Fatalf("second event should be published, got %v", h.repo.published)
	}
	if got := h.outcome(enums.EventOrderCreated, metrics.OutboxRetry); got != 1 {
		t.Fatalf("retry outcome = %v", got)
	}
	if got := h.outcome(enums.EventOrderCreated, metrics.OutboxPublished); got != 1 {
		t.Fatalf("published outcome = %v", got)
	}
}

func TestPublishedMessageCarriesOrderingKeyAndAttributes(t *testing.T) {
	event := orderEvent(t, 0)
	event.EventType = enums.EventOrderStatusChanged
	h := newHarness(t, []models.OutboxEvent{event}, nil)

	if _, err := h.svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(h.pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(h.pub.sent))
	}
	msg := h.pub.sent[0]
	if want := "order:" + event.AggregateID.String(); msg.OrderingKey != want {
		t.Fatalf("ordering key = %q, want %q", msg.OrderingKey, want)
	}
	for attr, want := range map[string]string{
		"event_type":     string(enums.EventOrderStatusChanged),
		"event_version":  "1",
		"aggregate_type": "order",
		"outbox_id":      event.ID.String(),
	} {
		if msg.Attributes[attr] != want {
			t.Fatalf("attribute %s = %q, want %q", attr, msg.Attributes[attr], want)
		}
	}
	if !bytes.Equal(msg.Data, event.Payload) {
		t.Fatal("message data should carry the stored envelope")
	}
}

func TestFailedPublishResumesOrderingKey(t *testing.T) {
	event := orderEvent(t, 0)
	event.EventType = enums.EventInventoryReduced
	event.AggregateType = enums.AggregateInventory
	h := newHarness(t, []models.OutboxEvent{event}, errors.New("unavailable"))

	if _, err := h.svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(h.pub.resumed) != 1 || h.pub.resumed[0] != "inventory:"+event.AggregateID.String() {
		t.Fatalf("expected ordering key to be resumed, got %v", h.pub.resumed)
	}
}

func TestUnresolvableEventIsDeadLettered(t *testing.T) {
	event := orderEvent(t, 0)
	h := newHarness(t, []models.OutboxEvent{event})
	h.registry.err = registry.NewNonRetryableError(errors.New("invalid payload"))

	if _, err := h.svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(h.pub.sent) != 0 {
		t.Fatal("nothing should be published")
	}
	entry := h.onlyDLQEntry(t)
	if entry.EventID != event.ID || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq entry does not match event: %+v", entry)
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
	if len(h.repo.terminal) != 1 {
		t.Fatalf("event should be marked terminal, got %v", h.repo.terminal)
	}
}

func TestLastAttemptIsDeadLettered(t *testing.T) {
	event := orderEvent(t, 1)
	h := newHarness(t, []models.OutboxEvent{event}, errors.New("transient"))
	h.svc.maxAttempts = 2

	if _, err := h.svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	entry := h.onlyDLQEntry(t)
	if entry.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
	if len(h.repo.failed) != 0 {
		t.Fatal("dead-lettered event must not also be marked failed")
	}
	if got := h.outcome(enums.EventOrderCreated, metrics.OutboxDeadLettered); got != 1 {
		t.Fatalf("dead_lettered outcome = %v", got)
	}
}

func TestMissingPublisherIsDeadLettered(t *testing.T) {
	h := newHarness(t, []models.OutboxEvent{orderEvent(t, 0)})
	h.svc.publishers = func(string) publisher { return nil }

	if _, err := h.svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if entry := h.onlyDLQEntry(t); entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestEnsureReadinessRequiresPublisherPerTopic(t *testing.T) {
	h := newHarness(t, nil)
	h.registry.topics = []string{"orders-topic", "inventory-topic"}
	if err := h.svc.ensureReadiness(context.Background()); err != nil {
		t.Fatalf("expected readiness, got %v", err)
	}

	h.svc.publishers = func(topic string) publisher {
		if topic == "inventory-topic" {
			return nil
		}
		return h.pub
	}
	if err := h.svc.ensureReadiness(context.Background()); err == nil {
		t.Fatal("expected error for missing inventory publisher")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{Config: &config.Config{}}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

type harness struct {
	svc      *Service
	repo     *fakeRepo
	dlq      *fakeDLQ
	pub      *fakePublisher
	registry *fakeRegistry
	reg      *prometheus.Registry
}

// newHarness wires a service whose publisher returns publishErrs in order,
// then succeeds.
func newHarness(t *testing.T, events []models.OutboxEvent, publishErrs ...error) *harness {
	t.Helper()
	h := &harness{
		repo:     &fakeRepo{events: events},
		dlq:      &fakeDLQ{},
		pub:      &fakePublisher{errs: publishErrs},
		registry: &fakeRegistry{},
		reg:      prometheus.NewRegistry(),
	}
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{Outbox: config.OutboxConfig{BatchSize: 2, PollIntervalMS: 10, MaxAttempts: 5}},
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         fakeDB{},
		PubSub:     fakeDB{},
		Repository: h.repo,
		DLQ:        h.dlq,
		Registry:   h.registry,
		Publishers: func(string) publisher { return h.pub },
		Metrics:    metrics.NewOutboxMetrics(h.reg),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) onlyDLQEntry(t *testing.T) models.OutboxDLQ {
	t.Helper()
	if len(h.dlq.entries) != 1 {
		t.Fatalf("expected one dlq entry, got %d", len(h.dlq.entries))
	}
	return h.dlq.entries[0]
}

func (h *harness) outcome(eventType enums.OutboxEventType, outcome string) float64 {
	families, _ := h.reg.Gather()
	for _, mf := range families {
		if mf.GetName() != "outbox_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["event_type"] == string(eventType) && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func orderEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

// fakeRegistry resolves every row onto a topic named after its aggregate.
type fakeRegistry struct {
	err    error
	topics []string
}

func (f *fakeRegistry) Topics() []string { return f.topics }

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, registry.NewNonRetryableError(err)
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			Topic:         string(event.AggregateType) + "-topic",
		},
		Envelope: envelope,
	}, nil
}

type fakePublisher struct {
	errs    []error
	sent    []*gcppubsub.Message
	resumed []string
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return fakeResult{err: err}
}

func (f *fakePublisher) ResumePublish(orderingKey string) {
	f.resumed = append(f.resumed, orderingKey)
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	return "server-id", r.err
}
