package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/pkg/config"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	"github.com/angelmondragon/estore-backend/pkg/outbox"
	"github.com/angelmondragon/estore-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row whose envelope and payload decoded cleanly.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks rows that can never be published. The publisher
// dead-letters them instead of retrying.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// EventRegistry routes order events to the orders topic and inventory events
// to the inventory topic, and checks rows against the payload schemas before
// they leave the database.
type EventRegistry struct {
	topics   map[enums.OutboxEventType]string
	decoders *DecoderRegistry
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var errs []error
	if cfg.OrdersTopic == "" {
		errs = append(errs, errors.New("orders topic is required"))
	}
	if cfg.InventoryTopic == "" {
		errs = append(errs, errors.New("inventory topic is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	decoders := NewDecoderRegistry()
	RegisterJSON[payloads.OrderCreatedEvent](decoders, enums.EventOrderCreated, 1)
	RegisterJSON[payloads.OrderStatusChangedEvent](decoders, enums.EventOrderStatusChanged, 1)
	RegisterJSON[payloads.InventoryReducedEvent](decoders, enums.EventInventoryReduced, 1)

	return &EventRegistry{
		topics: map[enums.OutboxEventType]string{
			enums.EventOrderCreated:       cfg.OrdersTopic,
			enums.EventOrderStatusChanged: cfg.OrdersTopic,
			enums.EventInventoryReduced:   cfg.InventoryTopic,
		},
		decoders: decoders,
	}, nil
}

// Topics lists the distinct destination topics, sorted.
func (r *EventRegistry) Topics() []string {
	topics := make([]string, 0, len(r.topics))
	for _, topic := range r.topics {
		topics = append(topics, topic)
	}
	slices.Sort(topics)
	return slices.Compact(topics)
}

// Resolve validates an outbox row. Every failure is non-retryable because
// the row will not change between attempts.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	topic, ok := r.topics[event.EventType]
	if !ok {
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	}
	aggregate, _ := event.EventType.Aggregate()
	if event.AggregateType != aggregate {
		return nil, nonRetryable("%s must be keyed on %s, got %s", event.EventType, aggregate, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return nil, nonRetryable("%s has no aggregate id", event.EventType)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nonRetryable("%s envelope carries no data", event.EventType)
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.Version, data)
	if err != nil {
		return nil, NonRetryableError{Err: err}
	}

	return &ResolvedEvent{
		Descriptor: EventDescriptor{
			EventType:     event.EventType,
			AggregateType: aggregate,
			Topic:         topic,
		},
		Envelope: envelope,
		Payload:  payload,
	}, nil
}
