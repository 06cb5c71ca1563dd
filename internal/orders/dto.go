package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

// OrderItemDTO is a frozen order line. Item and Variant are archived when
// the catalog row or ledger row has since been deleted.
type OrderItemDTO struct {
	ID         uuid.UUID       `json:"id"`
	Item       types.Reference `json:"item"`
	Variant    types.Reference `json:"variant"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// ShippingDTO exposes tracking data of a confirmed order.
type ShippingDTO struct {
	TrackingNumber    *string    `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// OrderDTO is the full view of an order.
type OrderDTO struct {
	ID         uuid.UUID           `json:"id"`
	CartID     uuid.UUID           `json:"cart_id"`
	Status     enums.OrderStatus   `json:"status"`
	NextStatus []enums.OrderStatus `json:"next_statuses"`
	Shipping   ShippingInfo        `json:"shipping_info"`
	Tracking   *ShippingDTO        `json:"tracking,omitempty"`
	Items      []OrderItemDTO      `json:"items"`
	Total      decimal.Decimal     `json:"total"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// OrderSummaryDTO is one row of the order history.
type OrderSummaryDTO struct {
	ID        uuid.UUID         `json:"id"`
	Status    enums.OrderStatus `json:"status"`
	City      string            `json:"city"`
	CreatedAt time.Time         `json:"created_at"`
}

// TransitionResult reports a committed status change.
type TransitionResult struct {
	OrderID   uuid.UUID         `json:"order_id"`
	OldStatus enums.OrderStatus `json:"old_status"`
	NewStatus enums.OrderStatus `json:"new_status"`
}

func shippingInfoOf(order *models.Order) ShippingInfo {
	return ShippingInfo{
		FirstName:   order.FirstName,
		LastName:    order.LastName,
		Email:       order.Email,
		PhoneNumber: order.PhoneNumber,
		Address:     order.Address,
		City:        order.City,
		PostalCode:  order.PostalCode,
	}
}

func newOrderItemDTO(item models.OrderItem, variantSize string) OrderItemDTO {
	return OrderItemDTO{
		ID:         item.ID,
		Item:       types.NewReference(item.ItemID, item.ItemName),
		Variant:    types.NewReference(item.InventoryID, variantSize),
		Quantity:   item.Quantity,
		TotalPrice: item.TotalPrice,
	}
}

func newSummaryDTO(order models.Order) OrderSummaryDTO {
	return OrderSummaryDTO{
		ID:        order.ID,
		Status:    order.Status,
		City:      order.City,
		CreatedAt: order.CreatedAt,
	}
}
