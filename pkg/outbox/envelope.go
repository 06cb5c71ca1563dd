package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actor kinds recorded on envelopes.
const (
	ActorShopper = "shopper"
	ActorAdmin   = "admin"
	ActorSystem  = "system"
)

// ActorRef says who triggered the event. Shoppers are known only by cart.
type ActorRef struct {
	Kind   string     `json:"kind"`
	CartID *uuid.UUID `json:"cart_id,omitempty"`
}

// PayloadEnvelope wraps every outbox payload. Data holds the versioned event
// body from pkg/outbox/payloads.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
