package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
)

// Availability is the sellable view of one variant: the ledger quantity
// minus units committed to confirmed orders that have not been decremented
// yet.
type Availability struct {
	VariantID uuid.UUID `json:"variant_id"`
	ItemType  string    `json:"item_type"`
	Size      string    `json:"size"`
	Ledger    int       `json:"ledger_quantity"`
	Committed int       `json:"committed_quantity"`
}

// Raw may be negative when confirmed demand outran a restock downward.
func (a Availability) Raw() int {
	return a.Ledger - a.Committed
}

// Sellable is Raw clamped at zero.
func (a Availability) Sellable() int {
	if raw := a.Raw(); raw > 0 {
		return raw
	}
	return 0
}

func (a Availability) InStock() bool {
	return a.Sellable() > 0
}

// Calculator derives availability from the ledger and confirmed orders.
// Pending orders and cart contents never reduce availability.
type Calculator struct {
	repo *Repository
}

func NewCalculator(repo *Repository) *Calculator {
	return &Calculator{repo: repo}
}

// Available computes availability outside any transaction.
func (c *Calculator) Available(ctx context.Context, variantID uuid.UUID) (Availability, error) {
	return c.AvailableTx(ctx, nil, variantID)
}

// AvailableTx computes availability using tx so commit-time checks observe
// the same snapshot as the writes that follow them.
func (c *Calculator) AvailableTx(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (Availability, error) {
	repo := c.repo.WithTx(tx)
	inv, err := repo.FindByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Availability{}, pkgerrors.New(pkgerrors.CodeNotFound, "inventory variant not found")
		}
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	demand, err := repo.CommittedDemand(ctx, []uuid.UUID{variantID})
	if err != nil {
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum confirmed demand")
	}
	return Availability{
		VariantID: inv.ID,
		ItemType:  inv.ItemType,
		Size:      inv.Size,
		Ledger:    inv.Quantity,
		Committed: demand[variantID],
	}, nil
}

// AvailabilityFor computes availability for several variants with one
// demand query. Unknown ids are absent from the result.
func (c *Calculator) AvailabilityFor(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]Availability, error) {
	out := make(map[uuid.UUID]Availability, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	repo := c.repo.WithTx(tx)
	var rows []struct {
		ID       uuid.UUID
		ItemType string
		Size     string
		Quantity int
	}
	if err := repo.db.WithContext(ctx).Table("inventories").Select("id, item_type, size, quantity").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	demand, err := repo.CommittedDemand(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum confirmed demand")
	}
	for _, row := range rows {
		out[row.ID] = Availability{
			VariantID: row.ID,
			ItemType:  row.ItemType,
			Size:      row.Size,
			Ledger:    row.Quantity,
			Committed: demand[row.ID],
		}
	}
	return out, nil
}
