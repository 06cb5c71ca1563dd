package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is an anonymous shopper cart identified by an opaque session id.
type Cart struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem is one line of a cart. ItemID and InventoryID become null when
// the referenced rows are deleted; ItemName keeps the snapshot.
type CartItem struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CartID      uuid.UUID  `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_inventory_item"`
	ItemID      *uuid.UUID `gorm:"column:item_id;type:uuid;uniqueIndex:ux_cart_items_cart_inventory_item"`
	ItemName    string     `gorm:"column:item_name;not null"`
	InventoryID *uuid.UUID `gorm:"column:inventory_id;type:uuid;uniqueIndex:ux_cart_items_cart_inventory_item"`
	Quantity    int        `gorm:"column:quantity;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
