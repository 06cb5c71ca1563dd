package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/outbox/registry"
)

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// orderingResumer is implemented by publishers that pause an ordering key
// after a failed publish.
type orderingResumer interface {
	ResumePublish(orderingKey string)
}

type publisherFactory func(topic string) publisher

type topicPublishers interface {
	Publisher(topic string) *gcppubsub.Publisher
}

// gcpPublishers adapts the shared Pub/Sub client. The client caches one
// publisher per topic with message ordering enabled.
func gcpPublishers(client topicPublishers) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return gcpPublisher{p}
	}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}

func (g gcpPublisher) ResumePublish(orderingKey string) {
	g.p.ResumePublish(orderingKey)
}

// orderingKey keeps every event of one order, or of one variant, in commit
// order for subscribers.
func orderingKey(event models.OutboxEvent) string {
	if event.AggregateID == uuid.Nil {
		return ""
	}
	return string(event.AggregateType) + ":" + event.AggregateID.String()
}

// newMessage carries the stored envelope untouched; attributes let
// subscribers filter without decoding the body.
func newMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: orderingKey(event),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"event_version":  strconv.Itoa(max(resolved.Envelope.Version, 1)),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
			"outbox_id":      event.ID.String(),
		},
	}
}

// send publishes msg and waits for the server ack. A failed publish pauses
// its ordering key inside the client, so it is resumed for the next attempt.
func send(ctx context.Context, pub publisher, msg *gcppubsub.Message) error {
	result := pub.Publish(ctx, msg)
	if result == nil {
		return errors.New("publisher returned no result")
	}
	if _, err := result.Get(ctx); err != nil {
		if r, ok := pub.(orderingResumer); ok && msg.OrderingKey != "" {
			r.ResumePublish(msg.OrderingKey)
		}
		return err
	}
	return nil
}
