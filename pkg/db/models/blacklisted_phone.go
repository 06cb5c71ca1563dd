package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlacklistedPhone is a phone number that may not place orders.
type BlacklistedPhone struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PhoneNumber string    `gorm:"column:phone_number;not null;uniqueIndex"`
	Reason      *string   `gorm:"column:reason"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *BlacklistedPhone) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
