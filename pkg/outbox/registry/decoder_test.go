package registry

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/estore-backend/pkg/enums"
	"github.com/angelmondragon/estore-backend/pkg/outbox/payloads"
)

func TestDecodeAsReturnsTypedPayload(t *testing.T) {
	reg := NewDecoderRegistry()
	RegisterJSON[payloads.OrderStatusChangedEvent](reg, enums.EventOrderStatusChanged, 1)

	raw := json.RawMessage(`{"new_status":"shipped","old_status":"printing"}`)
	for _, version := range []int{0, 1} {
		payload, err := DecodeAs[payloads.OrderStatusChangedEvent](reg, enums.EventOrderStatusChanged, version, raw)
		if err != nil {
			t.Fatalf("v%d: unexpected error: %v", version, err)
		}
		if payload.NewStatus != enums.OrderStatusShipped || payload.OldStatus != enums.OrderStatusPrinting {
			t.Fatalf("v%d: unexpected payload %+v", version, payload)
		}
	}
}

func TestDecodeRejectsUnknownSchemaAndBadJSON(t *testing.T) {
	reg := NewDecoderRegistry()
	RegisterJSON[payloads.OrderStatusChangedEvent](reg, enums.EventOrderStatusChanged, 1)

	if _, err := reg.Decode(enums.EventOrderStatusChanged, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unregistered version")
	}
	if _, err := reg.Decode(enums.EventOrderStatusChanged, 1, json.RawMessage(`{"new_status":`)); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := DecodeAs[payloads.OrderCreatedEvent](reg, enums.EventOrderStatusChanged, 1, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected type mismatch error")
	}
}
