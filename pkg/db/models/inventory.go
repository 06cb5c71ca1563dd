package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inventory is the ledger row for one (item_type, size) variant.
type Inventory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ItemType  string    `gorm:"column:item_type;not null;uniqueIndex:ux_inventories_type_size"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:ux_inventories_type_size"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Inventory) TableName() string { return "inventories" }

func (i *Inventory) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
