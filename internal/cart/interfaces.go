package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/internal/inventory"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindCart(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	EnsureCart(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Touch(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindLine(ctx context.Context, cartID, itemID, inventoryID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, line *models.CartItem) error
	UpdateQuantity(ctx context.Context, lineID uuid.UUID, qty int) error
	DeleteItem(ctx context.Context, cartID, lineID uuid.UUID) (bool, error)
	CountItems(ctx context.Context, cartID uuid.UUID) (int64, error)
	FindCatalogItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ItemPrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Item, error)
}

// StockReader resolves variants and their availability.
type StockReader interface {
	AvailableTx(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (inventory.Availability, error)
	AvailabilityFor(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]inventory.Availability, error)
	FindVariantTx(ctx context.Context, tx *gorm.DB, itemType, size string) (*inventory.Availability, error)
}

// PendingCanceller cancels the pending order of a cart inside tx. It
// returns the cancelled order id, or nil when the cart had no pending order.
type PendingCanceller interface {
	CancelPendingTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (*uuid.UUID, error)
}
