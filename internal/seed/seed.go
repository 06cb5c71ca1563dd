// Package seed loads the demo storefront catalog: item types, sizes, stock
// levels and two designs per type. Running it twice leaves the same rows.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type itemSeed struct {
	name  string
	price string
}

type typeSeed struct {
	code  string
	label string
	sizes []string
	stock []int
	items [2]itemSeed
}

var (
	clothesSizes = []string{"S", "M", "L", "XL", "XXL"}
	shoeSizes    = []string{"39", "40", "41", "42"}
)

var catalog = []typeSeed{
	{code: "t_shirt", label: "T-Shirt", sizes: clothesSizes, stock: []int{50, 0, 100, 40, 0},
		items: [2]itemSeed{{"t_shirt_1", "40"}, {"t_shirt_2", "100"}}},
	{code: "pant", label: "Pant", sizes: clothesSizes, stock: []int{50, 40, 100, 0, 80},
		items: [2]itemSeed{{"pant_1", "250"}, {"pant_2", "80"}}},
	{code: "shirt", label: "Shirt", sizes: clothesSizes, stock: []int{50, 10, 100, 0, 0},
		items: [2]itemSeed{{"shirt_1", "10"}, {"shirt_2", "35"}}},
	{code: "hoodie", label: "Hoodie", sizes: clothesSizes, stock: []int{50, 50, 0, 0, 0},
		items: [2]itemSeed{{"hoodie_1", "60"}, {"hoodie_2", "80"}}},
	{code: "sweater", label: "Sweater", sizes: clothesSizes, stock: []int{0, 0, 100, 40, 0},
		items: [2]itemSeed{{"sweater_1", "50"}, {"sweater_2", "50"}}},
	{code: "shoe", label: "Shoe", sizes: shoeSizes, stock: []int{10, 50, 0, 50},
		items: [2]itemSeed{{"shoes_1", "47"}, {"shoes_2", "5000"}}},
}

// Seeder writes the demo catalog in one transaction.
type Seeder struct {
	db   txRunner
	logg *logger.Logger
}

func New(db txRunner, logg *logger.Logger) (*Seeder, error) {
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Seeder{db: db, logg: logg}, nil
}

// Run upserts the catalog. Stock levels are reset to the seed quantities.
func (s *Seeder) Run(ctx context.Context) error {
	var items int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := seedSizes(tx); err != nil {
			return err
		}
		for _, t := range catalog {
			if err := seedType(tx, t); err != nil {
				return fmt.Errorf("seed %s: %w", t.code, err)
			}
			items += len(t.items)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"item_types": len(catalog),
		"items":      items,
	}), "catalog seeded")
	return nil
}

func seedSizes(tx *gorm.DB) error {
	sizes := make([]models.Size, 0, len(clothesSizes)+len(shoeSizes))
	for i, code := range clothesSizes {
		sizes = append(sizes, models.Size{Code: code, SortOrder: i + 1})
	}
	for i, code := range shoeSizes {
		sizes = append(sizes, models.Size{Code: code, SortOrder: 10 + i})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"sort_order"}),
	}).Create(&sizes).Error
}

func seedType(tx *gorm.DB, t typeSeed) error {
	itemType := models.ItemType{Code: t.code, Label: t.label}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"label"}),
	}).Create(&itemType).Error; err != nil {
		return err
	}

	for i, size := range t.sizes {
		row := models.Inventory{ItemType: t.code, Size: size, Quantity: t.stock[i]}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_type"}, {Name: "size"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("inventory %s: %w", size, err)
		}
	}

	for _, it := range t.items {
		price, err := decimal.NewFromString(it.price)
		if err != nil {
			return fmt.Errorf("price for %s: %w", it.name, err)
		}
		var item models.Item
		err = tx.Where("name = ? AND item_type = ?", it.name, t.code).
			Assign(models.Item{Price: price, ImageRef: "items/" + it.name}).
			FirstOrCreate(&item, models.Item{Name: it.name, ItemType: t.code}).Error
		if err != nil {
			return fmt.Errorf("item %s: %w", it.name, err)
		}
	}
	return nil
}
