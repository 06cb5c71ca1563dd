package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/internal/orders"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
	"github.com/angelmondragon/estore-backend/pkg/mail"
	"github.com/angelmondragon/estore-backend/pkg/outbox"
	"github.com/angelmondragon/estore-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/estore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/estore-backend/pkg/outbox/registry"
)

const orderNotificationConsumer = "order-notifications"

type orderReader interface {
	Get(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

var _ processedTracker = (*idempotency.Manager)(nil)

// Consumer turns order status changes into shopper emails.
type Consumer struct {
	orders       orderReader
	mailer       mail.Mailer
	subscription receiver
	idempotency  processedTracker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(orders orderReader, mailer mail.Mailer, subscription receiver, tracker processedTracker, logg *logger.Logger) (*Consumer, error) {
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		orders:       orders,
		mailer:       mailer,
		subscription: subscription,
		idempotency:  tracker,
		decoders:     newDecoders(),
		logg:         logg,
	}, nil
}

func newDecoders() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	registry.RegisterJSON[payloads.OrderStatusChangedEvent](reg, enums.EventOrderStatusChanged, 1)
	return reg
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderStatusChanged) {
		c.logg.Debug(logCtx, "skipping event without notification")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	payload, err := registry.DecodeAs[payloads.OrderStatusChangedEvent](c.decoders, enums.EventOrderStatusChanged, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())
	logCtx = c.logg.WithField(logCtx, "new_status", payload.NewStatus)

	if !notifies(payload.NewStatus) {
		c.logg.Debug(logCtx, "status not notified")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.notify(ctx, payload); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			c.logg.Warn(logCtx, "order vanished before notification")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification delivery failed", err)
		if delErr := c.idempotency.Delete(ctx, orderNotificationConsumer, eventID); delErr != nil {
			c.logg.Warn(c.logg.WithField(logCtx, "error", delErr.Error()), "failed to release idempotency key")
		}
		return processResult{nack: true}
	}
	c.logg.Info(logCtx, "shopper notified of order status")
	return processResult{ack: true}
}

func (c *Consumer) notify(ctx context.Context, payload payloads.OrderStatusChangedEvent) error {
	order, err := c.orders.Get(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order.Shipping.Email == "" {
		return errors.New("order has no email address")
	}
	msg, err := render(payload.NewStatus, order)
	if err != nil {
		return err
	}
	return c.mailer.Send(ctx, msg)
}
