package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/pkg/enums"
)

// Order captures a cart checkout and its shipping information.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CartID      uuid.UUID         `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_orders_cart_pending,where:status = 'pending'"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null"`
	FirstName   string            `gorm:"column:first_name;not null"`
	LastName    string            `gorm:"column:last_name;not null"`
	Email       string            `gorm:"column:email;not null"`
	PhoneNumber string            `gorm:"column:phone_number;not null"`
	Address     string            `gorm:"column:address;not null"`
	City        string            `gorm:"column:city;not null"`
	PostalCode  string            `gorm:"column:postal_code;not null"`
	IPAddress   *string           `gorm:"column:ip_address"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is the frozen copy of a cart line taken when the order is
// confirmed.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ItemID      *uuid.UUID      `gorm:"column:item_id;type:uuid"`
	ItemName    string          `gorm:"column:item_name;not null"`
	InventoryID *uuid.UUID      `gorm:"column:inventory_id;type:uuid;index"`
	Quantity    int             `gorm:"column:quantity;not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(10,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (o *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// Shipping holds tracking data for a confirmed order.
type Shipping struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	TrackingNumber    *string    `gorm:"column:tracking_number"`
	EstimatedDelivery *time.Time `gorm:"column:estimated_delivery;type:date"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Shipping) TableName() string { return "shippings" }

func (s *Shipping) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
