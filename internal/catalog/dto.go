package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
)

// ItemDTO is the shopper-facing view of an item.
type ItemDTO struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ItemType string          `json:"item_type"`
	ImageRef string          `json:"image_ref"`
}

// SizeStatus reports whether one size of an item can currently be bought.
type SizeStatus struct {
	Size      string    `json:"size"`
	VariantID uuid.UUID `json:"variant_id"`
	Available int       `json:"available"`
	InStock   bool      `json:"in_stock"`
}

// ItemDetailDTO bundles an item with its per-size stock.
type ItemDetailDTO struct {
	ItemDTO
	Sizes []SizeStatus `json:"sizes"`
}

func NewItemDTO(item models.Item) ItemDTO {
	return ItemDTO{
		ID:       item.ID,
		Name:     item.Name,
		Price:    item.Price,
		ItemType: item.ItemType,
		ImageRef: item.ImageRef,
	}
}
