package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/estore-backend/pkg/types"
)

// AddItemInput captures an add-to-cart request for one size of an item.
type AddItemInput struct {
	ItemID   uuid.UUID
	Size     string
	Quantity int
}

// Adjustment changes a line's quantity either relatively (Delta, clamped to
// availability and to a minimum of one) or to an Absolute value (rejected
// when out of range). Exactly one must be set.
type Adjustment struct {
	Delta    *int
	Absolute *int
}

// LineDTO is one cart line with its current availability.
type LineDTO struct {
	ID          uuid.UUID        `json:"id"`
	Item        types.Reference  `json:"item"`
	Variant     types.Reference  `json:"variant"`
	Size        string           `json:"size,omitempty"`
	ImageRef    string           `json:"image_ref,omitempty"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal   decimal.Decimal  `json:"line_total"`
	Available   int              `json:"available"`
	Unavailable bool             `json:"unavailable"`
}

// CartDTO is the shopper view of a cart.
type CartDTO struct {
	ID             uuid.UUID       `json:"id"`
	Items          []LineDTO       `json:"items"`
	Total          decimal.Decimal `json:"total"`
	HasUnavailable bool            `json:"has_unavailable"`
}

// RemoveResult reports the side effect of removing a line.
type RemoveResult struct {
	Cart             *CartDTO   `json:"cart"`
	CancelledOrderID *uuid.UUID `json:"cancelled_order_id,omitempty"`
}
