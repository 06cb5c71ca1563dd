package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/internal/inventory"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the shopper cart operations.
type Service interface {
	CreateOrGet(ctx context.Context, cc types.CartContext) (*models.Cart, error)
	Get(ctx context.Context, cc types.CartContext) (*CartDTO, error)
	AddItem(ctx context.Context, cc types.CartContext, input AddItemInput) (*CartDTO, error)
	AdjustItem(ctx context.Context, cc types.CartContext, lineID uuid.UUID, adj Adjustment) (*CartDTO, error)
	RemoveItem(ctx context.Context, cc types.CartContext, lineID uuid.UUID) (*RemoveResult, error)
	Total(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo     CartRepository
	tx       txRunner
	stock    StockReader
	canceler PendingCanceller
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack. canceler
// may be nil, in which case emptying a cart leaves pending orders alone.
func NewService(repo CartRepository, tx txRunner, stock StockReader, canceler PendingCanceller, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		stock:    stock,
		canceler: canceler,
		logg:     logg,
	}, nil
}

func (s *service) CreateOrGet(ctx context.Context, cc types.CartContext) (*models.Cart, error) {
	cart, err := s.repo.EnsureCart(ctx, cc.CartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

func (s *service) Get(ctx context.Context, cc types.CartContext) (*CartDTO, error) {
	if !cc.HasCart() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return s.load(ctx, nil, cc.CartID)
}

func (s *service) AddItem(ctx context.Context, cc types.CartContext, input AddItemInput) (*CartDTO, error) {
	size := strings.TrimSpace(input.Size)
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if size == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var cartID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.EnsureCart(ctx, cc.CartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		cartID = cart.ID

		item, err := repo.FindCatalogItem(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}
		variant, err := s.stock.FindVariantTx(ctx, tx, item.ItemType, size)
		if err != nil {
			return err
		}
		if variant == nil {
			return stockUnavailable(uuid.Nil, input.Quantity, 0)
		}

		line, err := repo.FindLine(ctx, cartID, item.ID, variant.VariantID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
		held := 0
		if line != nil {
			held = line.Quantity
		}
		if held+input.Quantity > variant.Sellable() {
			return stockUnavailable(variant.VariantID, held+input.Quantity, variant.Sellable())
		}

		if line != nil {
			err = repo.UpdateQuantity(ctx, line.ID, held+input.Quantity)
		} else {
			itemID, variantID := item.ID, variant.VariantID
			err = repo.CreateItem(ctx, &models.CartItem{
				CartID:      cartID,
				ItemID:      &itemID,
				ItemName:    item.Name,
				InventoryID: &variantID,
				Quantity:    input.Quantity,
			})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
		}
		return repo.Touch(ctx, cartID)
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, nil, cartID)
}

func (s *service) AdjustItem(ctx context.Context, cc types.CartContext, lineID uuid.UUID, adj Adjustment) (*CartDTO, error) {
	if !cc.HasCart() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if (adj.Delta == nil) == (adj.Absolute == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of delta or quantity is required")
	}
	if adj.Delta != nil && *adj.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}
	if adj.Absolute != nil && *adj.Absolute < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1; remove the item instead")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := repo.FindItem(ctx, cc.CartID, lineID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		target, err := s.nextQuantity(ctx, tx, line, adj)
		if err != nil {
			return err
		}
		if target == line.Quantity {
			return nil
		}
		if err := repo.UpdateQuantity(ctx, line.ID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return repo.Touch(ctx, cc.CartID)
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, nil, cc.CartID)
}

// nextQuantity applies the adjustment rules. Decrements never need stock;
// increments are checked against availability read inside tx.
func (s *service) nextQuantity(ctx context.Context, tx *gorm.DB, line *models.CartItem, adj Adjustment) (int, error) {
	current := line.Quantity
	if adj.Delta != nil && *adj.Delta < 0 {
		return max(current+*adj.Delta, 1), nil
	}
	if adj.Absolute != nil && *adj.Absolute <= current {
		return *adj.Absolute, nil
	}

	if line.InventoryID == nil || line.ItemID == nil {
		return 0, pkgerrors.New(pkgerrors.CodeItemUnavailable, "item is no longer available")
	}
	avail, err := s.stock.AvailableTx(ctx, tx, *line.InventoryID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeItemUnavailable, "item is no longer available")
		}
		return 0, err
	}
	sellable := avail.Sellable()

	if adj.Absolute != nil {
		if *adj.Absolute > sellable {
			return 0, stockUnavailable(avail.VariantID, *adj.Absolute, sellable)
		}
		return *adj.Absolute, nil
	}

	target := min(current+*adj.Delta, sellable)
	return max(target, current), nil
}

func (s *service) RemoveItem(ctx context.Context, cc types.CartContext, lineID uuid.UUID) (*RemoveResult, error) {
	if !cc.HasCart() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	var cancelled *uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cancelled = nil
		repo := s.repo.WithTx(tx)
		deleted, err := repo.DeleteItem(ctx, cc.CartID, lineID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		remaining, err := repo.CountItems(ctx, cc.CartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cart lines")
		}
		if remaining == 0 && s.canceler != nil {
			cancelled, err = s.canceler.CancelPendingTx(ctx, tx, cc.CartID)
			if err != nil {
				return err
			}
		}
		return repo.Touch(ctx, cc.CartID)
	})
	if err != nil {
		return nil, err
	}
	if cancelled != nil && s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithCartID(ctx, cc.CartID.String()), cancelled.String())
		s.logg.Info(logCtx, "pending order cancelled after cart was emptied")
	}
	cart, err := s.load(ctx, nil, cc.CartID)
	if err != nil {
		return nil, err
	}
	return &RemoveResult{Cart: cart, CancelledOrderID: cancelled}, nil
}

func (s *service) Total(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	cart, err := s.load(ctx, nil, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return cart.Total, nil
}

func (s *service) load(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (*CartDTO, error) {
	repo := s.repo.WithTx(tx)
	if _, err := repo.FindCart(ctx, cartID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	lines, err := repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}

	var itemIDs, variantIDs []uuid.UUID
	for _, line := range lines {
		if line.ItemID != nil {
			itemIDs = append(itemIDs, *line.ItemID)
		}
		if line.InventoryID != nil {
			variantIDs = append(variantIDs, *line.InventoryID)
		}
	}
	items, err := repo.ItemPrices(ctx, itemIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	stock, err := s.stock.AvailabilityFor(ctx, tx, variantIDs)
	if err != nil {
		return nil, err
	}

	out := &CartDTO{ID: cartID, Items: make([]LineDTO, 0, len(lines)), Total: decimal.Zero}
	for _, line := range lines {
		dto := buildLine(line, items, stock)
		out.Total = out.Total.Add(dto.LineTotal)
		if dto.Unavailable {
			out.HasUnavailable = true
		}
		out.Items = append(out.Items, dto)
	}
	return out, nil
}

func buildLine(line models.CartItem, items map[uuid.UUID]models.Item, stock map[uuid.UUID]inventory.Availability) LineDTO {
	dto := LineDTO{
		ID:        line.ID,
		Item:      types.NewReference(line.ItemID, line.ItemName),
		Variant:   types.NewReference(nil, ""),
		Quantity:  line.Quantity,
		LineTotal: decimal.Zero,
	}

	var avail *inventory.Availability
	if line.InventoryID != nil {
		if a, ok := stock[*line.InventoryID]; ok {
			avail = &a
			dto.Variant = types.Active{ID: a.VariantID, Name: a.Size}
			dto.Size = a.Size
			dto.Available = a.Sellable()
		}
	}
	var item *models.Item
	if line.ItemID != nil {
		if it, ok := items[*line.ItemID]; ok {
			item = &it
			price := it.Price
			dto.UnitPrice = &price
			dto.ImageRef = it.ImageRef
			dto.LineTotal = price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		}
	}
	if item == nil {
		dto.Item = types.Archived{Name: line.ItemName}
	}
	dto.Unavailable = item == nil || avail == nil || line.Quantity > avail.Sellable()
	return dto
}

func stockUnavailable(variantID uuid.UUID, requested, available int) error {
	details := map[string]any{
		"requested": requested,
		"available": available,
	}
	if variantID != uuid.Nil {
		details["variant_id"] = variantID.String()
	}
	return pkgerrors.New(pkgerrors.CodeStockUnavailable, "requested quantity exceeds available stock").WithDetails(details)
}
