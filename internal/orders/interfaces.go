package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/internal/inventory"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	"github.com/angelmondragon/estore-backend/pkg/outbox"
	"github.com/angelmondragon/estore-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderRepository defines the persistence surface required by the order service.
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindPendingByCart(ctx context.Context, cartID uuid.UUID) (*models.Order, error)
	LatestByCart(ctx context.Context, cartID uuid.UUID) (*models.Order, error)
	ListByCart(ctx context.Context, cartID uuid.UUID, params pagination.Params) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
	UpdateShippingInfo(ctx context.Context, id uuid.UUID, info ShippingInfo) (bool, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CartExists(ctx context.Context, cartID uuid.UUID) (bool, error)
	CartLines(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	DeleteCartLines(ctx context.Context, cartID uuid.UUID) error
	CatalogItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Item, error)
}

// StockLedger is the inventory surface the order lifecycle depends on.
type StockLedger interface {
	AvailabilityFor(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]inventory.Availability, error)
	LockVariantsTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]inventory.Availability, error)
	DecrementTx(ctx context.Context, tx *gorm.DB, demand map[uuid.UUID]int) error
}

// ShippingRecords manages the shipping row tied to an order.
type ShippingRecords interface {
	CreateTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Shipping, error)
	DeleteTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	FindByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Shipping, error)
}

// PhoneGuard rejects blacklisted phone numbers.
type PhoneGuard interface {
	Guard(ctx context.Context, tx *gorm.DB, number string) error
}

// MetricsRecorder receives order outcome counters.
type MetricsRecorder interface {
	IncTransition(from, to string)
	IncRejection(operation, code string)
}

type outboxPublisher = outbox.Emitter
