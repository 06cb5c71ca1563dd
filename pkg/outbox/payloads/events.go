package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/pkg/enums"
)

// OrderCreatedEvent is queued when a cart is turned into a pending order.
type OrderCreatedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	CartID  uuid.UUID         `json:"cart_id"`
	Status  enums.OrderStatus `json:"status"`
}

// OrderStatusChangedEvent is queued inside every committed status transition.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	CartID    uuid.UUID         `json:"cart_id"`
	OldStatus enums.OrderStatus `json:"old_status"`
	NewStatus enums.OrderStatus `json:"new_status"`
}

// InventoryReducedEvent is queued whenever a ledger write lowers a variant's
// quantity.
type InventoryReducedEvent struct {
	VariantID        uuid.UUID `json:"variant_id"`
	ItemType         string    `json:"item_type"`
	Size             string    `json:"size"`
	OldQuantity      int       `json:"old_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	ClampedCartItems int64     `json:"clamped_cart_items"`
}
