package inventory

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
	"github.com/angelmondragon/estore-backend/pkg/outbox"
	"github.com/angelmondragon/estore-backend/pkg/outbox/payloads"
)

// Reduction describes a ledger write that lowered a variant's quantity.
type Reduction struct {
	Variant     models.Inventory
	OldQuantity int
	NewQuantity int
}

// Reconciler keeps carts consistent with a shrinking ledger: cart lines
// holding more than the new quantity are clamped to it, never below one.
type Reconciler struct {
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewReconciler(emitter outbox.Emitter, logg *logger.Logger) *Reconciler {
	return &Reconciler{outbox: emitter, logg: logg}
}

// ReconcileTx must run inside the transaction that lowered the ledger. It
// returns the number of cart lines that were clamped.
func (r *Reconciler) ReconcileTx(ctx context.Context, tx *gorm.DB, red Reduction) (int64, error) {
	if red.NewQuantity >= red.OldQuantity {
		return 0, nil
	}
	target := red.NewQuantity
	if target < 1 {
		target = 1
	}

	res := tx.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("inventory_id = ? AND quantity > ?", red.Variant.ID, target).
		Updates(map[string]any{"quantity": target, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "clamp cart items")
	}

	if r.outbox != nil {
		err := r.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryReduced,
			AggregateType: enums.AggregateInventory,
			AggregateID:   red.Variant.ID,
			Actor:         &outbox.ActorRef{Kind: outbox.ActorSystem},
			Data: payloads.InventoryReducedEvent{
				VariantID:        red.Variant.ID,
				ItemType:         red.Variant.ItemType,
				Size:             red.Variant.Size,
				OldQuantity:      red.OldQuantity,
				NewQuantity:      red.NewQuantity,
				ClampedCartItems: res.RowsAffected,
			},
		})
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue inventory reduced event")
		}
	}

	if r.logg != nil && res.RowsAffected > 0 {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"variant_id":   red.Variant.ID.String(),
			"old_quantity": red.OldQuantity,
			"new_quantity": red.NewQuantity,
			"clamped":      res.RowsAffected,
		})
		r.logg.Info(logCtx, "cart items clamped after inventory reduction")
	}
	return res.RowsAffected, nil
}
