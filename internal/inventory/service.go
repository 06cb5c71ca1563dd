package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns every write to the inventory ledger.
type Service struct {
	tx         txRunner
	repo       *Repository
	calc       *Calculator
	reconciler *Reconciler
	logg       *logger.Logger
}

// NewService builds the inventory service with the required dependencies.
func NewService(tx txRunner, repo *Repository, reconciler *Reconciler, logg *logger.Logger) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("inventory reconciler required")
	}
	return &Service{
		tx:         tx,
		repo:       repo,
		calc:       NewCalculator(repo),
		reconciler: reconciler,
		logg:       logg,
	}, nil
}

func (s *Service) Available(ctx context.Context, variantID uuid.UUID) (Availability, error) {
	return s.calc.Available(ctx, variantID)
}

func (s *Service) AvailableTx(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (Availability, error) {
	return s.calc.AvailableTx(ctx, tx, variantID)
}

func (s *Service) AvailabilityFor(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]Availability, error) {
	return s.calc.AvailabilityFor(ctx, tx, ids)
}

// FindVariantTx resolves the ledger row for (itemType, size). A missing row
// yields (nil, nil).
func (s *Service) FindVariantTx(ctx context.Context, tx *gorm.DB, itemType, size string) (*Availability, error) {
	inv, err := s.repo.WithTx(tx).FindByVariant(ctx, itemType, size)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory variant")
	}
	avail, err := s.calc.AvailableTx(ctx, tx, inv.ID)
	if err != nil {
		return nil, err
	}
	return &avail, nil
}

// LockVariantsTx row-locks the variants in ascending id order and returns
// their availability. Order confirmation holds these locks so two carts
// cannot commit the same remaining units.
func (s *Service) LockVariantsTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]Availability, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory lock")
	}
	if _, err := s.repo.WithTx(tx).LockByIDs(ctx, ids); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory")
	}
	return s.calc.AvailabilityFor(ctx, tx, ids)
}

// ListVariants returns every variant of an item type ordered by size.
func (s *Service) ListVariants(ctx context.Context, itemType string) ([]Availability, error) {
	rows, err := s.repo.ListByType(ctx, itemType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	demand, err := s.repo.CommittedDemand(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum confirmed demand")
	}
	out := make([]Availability, 0, len(rows))
	for _, row := range rows {
		out = append(out, Availability{
			VariantID: row.ID,
			ItemType:  row.ItemType,
			Size:      row.Size,
			Ledger:    row.Quantity,
			Committed: demand[row.ID],
		})
	}
	return out, nil
}

// SetQuantity overwrites the ledger quantity of a variant. Lowering it
// clamps carts through the reconciler in the same transaction.
func (s *Service) SetQuantity(ctx context.Context, variantID uuid.UUID, qty int) (Availability, error) {
	if qty < 0 {
		return Availability{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be >= 0")
	}
	return s.write(ctx, variantID, func(current int) int { return qty })
}

// Restock adds delta units to a variant.
func (s *Service) Restock(ctx context.Context, variantID uuid.UUID, delta int) (Availability, error) {
	if delta <= 0 {
		return Availability{}, pkgerrors.New(pkgerrors.CodeValidation, "restock delta must be positive")
	}
	return s.write(ctx, variantID, func(current int) int { return current + delta })
}

func (s *Service) write(ctx context.Context, variantID uuid.UUID, next func(current int) int) (Availability, error) {
	var out Availability
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockByIDs(ctx, []uuid.UUID{variantID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory")
		}
		if len(locked) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory variant not found")
		}
		inv := locked[0]
		old := inv.Quantity
		qty := next(old)
		if err := repo.SetQuantity(ctx, inv.ID, qty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory")
		}
		inv.Quantity = qty
		if _, err := s.reconciler.ReconcileTx(ctx, tx, Reduction{Variant: inv, OldQuantity: old, NewQuantity: qty}); err != nil {
			return err
		}
		out, err = s.calc.AvailableTx(ctx, tx, inv.ID)
		return err
	})
	if err != nil {
		return Availability{}, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"variant_id": variantID.String(),
			"quantity":   out.Ledger,
		})
		s.logg.Info(logCtx, "inventory quantity updated")
	}
	return out, nil
}

// DecrementTx removes the given per-variant quantities from the ledger
// inside tx. All decrements apply or none do: any variant that is missing or
// short fails the call with INSUFFICIENT_STOCK and the caller's transaction
// must roll back.
func (s *Service) DecrementTx(ctx context.Context, tx *gorm.DB, demand map[uuid.UUID]int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory decrement")
	}
	if len(demand) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}

	repo := s.repo.WithTx(tx)
	locked, err := repo.LockByIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory")
	}
	byID := make(map[uuid.UUID]int, len(locked))
	for i, inv := range locked {
		byID[inv.ID] = i
	}

	for _, id := range sortedIDs(ids) {
		qty := demand[id]
		idx, ok := byID[id]
		if !ok {
			return insufficient(id, qty, 0)
		}
		inv := locked[idx]
		updated, err := repo.Decrement(ctx, id, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement inventory")
		}
		if !updated {
			return insufficient(id, qty, inv.Quantity)
		}
		old := inv.Quantity
		inv.Quantity = old - qty
		if _, err := s.reconciler.ReconcileTx(ctx, tx, Reduction{Variant: inv, OldQuantity: old, NewQuantity: inv.Quantity}); err != nil {
			return err
		}
	}
	return nil
}

// DeleteVariant removes a ledger row; referencing cart and order lines keep
// their name snapshot and become archived.
func (s *Service) DeleteVariant(ctx context.Context, variantID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, variantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory variant not found")
	}
	return nil
}

func insufficient(variantID uuid.UUID, requested, onHand int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock to print order").
		WithDetails(map[string]any{
			"variant_id": variantID.String(),
			"requested":  requested,
			"on_hand":    onHand,
		})
}
