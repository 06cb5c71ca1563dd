package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
)

// Repository exposes persistence operations for the inventory ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID returns gorm.ErrRecordNotFound when the variant does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// FindByVariant looks up the ledger row for an (item type, size) pair.
func (r *Repository) FindByVariant(ctx context.Context, itemType, size string) (*models.Inventory, error) {
	var inv models.Inventory
	err := r.db.WithContext(ctx).
		Where("item_type = ? AND size = ?", itemType, size).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListByType returns every ledger row of an item type ordered by size.
func (r *Repository) ListByType(ctx context.Context, itemType string) ([]models.Inventory, error) {
	var rows []models.Inventory
	err := r.db.WithContext(ctx).
		Model(&models.Inventory{}).
		Joins("JOIN sizes ON sizes.code = inventories.size").
		Where("inventories.item_type = ?", itemType).
		Order("sizes.sort_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LockByIDs loads and row-locks the given variants in ascending id order so
// concurrent writers always acquire locks in the same sequence.
func (r *Repository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Inventory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := sortedIDs(ids)
	var rows []models.Inventory
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type demandRow struct {
	InventoryID uuid.UUID
	Total       int
}

// CommittedDemand sums order item quantities of confirmed orders per
// variant. Variants with no confirmed demand are absent from the result.
func (r *Repository) CommittedDemand(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []demandRow
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.inventory_id AS inventory_id, COALESCE(SUM(oi.quantity), 0) AS total").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.status = ? AND oi.inventory_id IN ?", enums.OrderStatusConfirmed.String(), ids).
		Group("oi.inventory_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.InventoryID] = row.Total
	}
	return out, nil
}

// Decrement subtracts qty only when the ledger still holds at least qty
// units. It reports whether the row was updated.
func (r *Repository) Decrement(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventories
		SET quantity = quantity - ?,
			updated_at = ?
		WHERE id = ? AND quantity >= ?
	`, qty, time.Now().UTC(), id, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetQuantity overwrites the ledger quantity of a variant.
func (r *Repository) SetQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Inventory{}).
		Where("id = ?", id).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()}).Error
}

// Delete removes a ledger row. Cart and order items keep their snapshot and
// lose the reference through ON DELETE SET NULL.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Inventory{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
