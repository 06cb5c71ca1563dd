package dbtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
)

var sizeOrder = map[string]int{"S": 1, "M": 2, "L": 3, "XL": 4, "XXL": 5, "39": 10, "40": 11, "41": 12, "42": 13}

// SeedVariant inserts the item type and size when missing and returns a
// ledger row holding qty units.
func SeedVariant(t testing.TB, conn *gorm.DB, itemType, size string, qty int) models.Inventory {
	t.Helper()
	ensureCatalog(t, conn, itemType, size)

	inv := models.Inventory{ItemType: itemType, Size: size, Quantity: qty}
	if err := conn.Create(&inv).Error; err != nil {
		t.Fatalf("seed inventory %s/%s: %v", itemType, size, err)
	}
	return inv
}

// SeedItem inserts an item of the given type priced at price.
func SeedItem(t testing.TB, conn *gorm.DB, name, itemType, price string) models.Item {
	t.Helper()
	ensureCatalog(t, conn, itemType, "")

	item := models.Item{
		Name:     name,
		ItemType: itemType,
		Price:    decimal.RequireFromString(price),
		ImageRef: "images/" + name + ".png",
	}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item %s: %v", name, err)
	}
	return item
}

// SeedCart inserts an empty cart.
func SeedCart(t testing.TB, conn *gorm.DB) models.Cart {
	t.Helper()
	cart := models.Cart{}
	if err := conn.Create(&cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return cart
}

func ensureCatalog(t testing.TB, conn *gorm.DB, itemType, size string) {
	t.Helper()
	if itemType != "" {
		if err := conn.Exec(`INSERT INTO item_types (code, label) VALUES (?, ?) ON CONFLICT (code) DO NOTHING`, itemType, itemType).Error; err != nil {
			t.Fatalf("seed item type %s: %v", itemType, err)
		}
	}
	if size != "" {
		if err := conn.Exec(`INSERT INTO sizes (code, sort_order) VALUES (?, ?) ON CONFLICT (code) DO NOTHING`, size, sizeOrder[size]).Error; err != nil {
			t.Fatalf("seed size %s: %v", size, err)
		}
	}
}
