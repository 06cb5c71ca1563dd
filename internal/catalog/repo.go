package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
)

// Repository reads item types, sizes, and items.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) ListTypes(ctx context.Context) ([]models.ItemType, error) {
	var rows []models.ItemType
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListItems returns items newest first, optionally restricted to one type.
func (r *Repository) ListItems(ctx context.Context, itemType string) ([]models.Item, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{})
	if itemType != "" {
		query = query.Where("item_type = ?", itemType)
	}
	var rows []models.Item
	if err := query.Order("created_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindItem returns gorm.ErrRecordNotFound when the item does not exist.
func (r *Repository) FindItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes the item. Cart and order lines keep their name
// snapshot and lose the reference through ON DELETE SET NULL.
func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Item{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
