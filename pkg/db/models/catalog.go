package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemType is a product family such as t_shirt or shoe.
type ItemType struct {
	Code      string    `gorm:"column:code;primaryKey"`
	Label     string    `gorm:"column:label;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Size is a size label. SortOrder drives display ordering (S < M < L ...).
type Size struct {
	Code      string `gorm:"column:code;primaryKey"`
	SortOrder int    `gorm:"column:sort_order;not null"`
}

// Item is a sellable design. Its stock is tracked per (item_type, size).
type Item struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	ItemType  string          `gorm:"column:item_type;not null"`
	ImageRef  string          `gorm:"column:image_ref;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
