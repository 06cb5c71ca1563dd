package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/internal/inventory"
	"github.com/angelmondragon/estore-backend/pkg/db"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
	"github.com/angelmondragon/estore-backend/pkg/outbox"
	"github.com/angelmondragon/estore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/estore-backend/pkg/pagination"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, cc types.CartContext, input CreateInput) (*OrderDTO, error)
	Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*TransitionResult, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*TransitionResult, error)
	ConfirmForCart(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*TransitionResult, error)
	CancelForCart(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*TransitionResult, error)
	CancelPendingTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (*uuid.UUID, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	GetForCart(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*OrderDTO, error)
	Total(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	ListByCart(ctx context.Context, cc types.CartContext, params pagination.Params) (pagination.Page[OrderSummaryDTO], error)
	LatestShippingInfo(ctx context.Context, cc types.CartContext) (*ShippingInfo, error)
	UpdateShippingInfo(ctx context.Context, cc types.CartContext, orderID uuid.UUID, info ShippingInfo) (*OrderDTO, error)
}

// CreateInput captures the shopper data needed to open a pending order.
type CreateInput struct {
	Shipping  ShippingInfo
	IPAddress string
}

type service struct {
	repo     OrderRepository
	tx       txRunner
	stock    StockLedger
	shipping ShippingRecords
	guard    PhoneGuard
	outbox   outboxPublisher
	metrics  MetricsRecorder
	logg     *logger.Logger
}

// NewService builds the order service. metrics and logg may be nil.
func NewService(repo OrderRepository, tx txRunner, stock StockLedger, shipping ShippingRecords, guard PhoneGuard, emitter outboxPublisher, metrics MetricsRecorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if shipping == nil {
		return nil, fmt.Errorf("shipping records required")
	}
	if guard == nil {
		return nil, fmt.Errorf("phone guard required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		stock:    stock,
		shipping: shipping,
		guard:    guard,
		outbox:   emitter,
		metrics:  metrics,
		logg:     logg,
	}, nil
}

type transitionOpts struct {
	actor  string
	cartID *uuid.UUID
}

func (s *service) Create(ctx context.Context, cc types.CartContext, input CreateInput) (*OrderDTO, error) {
	info := input.Shipping.Normalize()
	if err := info.Validate(); err != nil {
		s.recordRejection("create", err)
		return nil, err
	}
	if !cc.HasCart() {
		err := pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		s.recordRejection("create", err)
		return nil, err
	}

	var order models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.CartExists(ctx, cc.CartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		if err := s.guard.Guard(ctx, tx, info.PhoneNumber); err != nil {
			return err
		}

		pending, err := repo.FindPendingByCart(ctx, cc.CartID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending order")
		}
		if pending != nil {
			return pendingExists(pending.ID)
		}

		lines, err := repo.CartLines(ctx, cc.CartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		if _, err := s.checkLines(ctx, tx, lines, false); err != nil {
			return err
		}

		order = models.Order{
			CartID:      cc.CartID,
			Status:      enums.OrderStatusPending,
			FirstName:   info.FirstName,
			LastName:    info.LastName,
			Email:       info.Email,
			PhoneNumber: info.PhoneNumber,
			Address:     info.Address,
			City:        info.City,
			PostalCode:  info.PostalCode,
		}
		if input.IPAddress != "" {
			ip := input.IPAddress
			order.IPAddress = &ip
		}
		if err := repo.Create(ctx, &order); err != nil {
			if db.IsUniqueViolation(err, "ux_orders_cart_pending") || db.IsUniqueViolation(err, "orders.cart_id") {
				return pendingExists(uuid.Nil)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		cartID := cc.CartID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Kind: outbox.ActorShopper, CartID: &cartID},
			Data: payloads.OrderCreatedEvent{
				OrderID: order.ID,
				CartID:  order.CartID,
				Status:  order.Status,
			},
		})
	})
	if err != nil {
		s.recordRejection("create", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncTransition("none", enums.OrderStatusPending.String())
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithCartID(ctx, cc.CartID.String()), order.ID.String())
		s.logg.Info(logCtx, "pending order created")
	}
	return s.Get(ctx, order.ID)
}

func (s *service) Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*TransitionResult, error) {
	return s.runTransition(ctx, "transition", orderID, target, transitionOpts{actor: outbox.ActorAdmin})
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID) (*TransitionResult, error) {
	return s.runTransition(ctx, "cancel", orderID, enums.OrderStatusCancelled, transitionOpts{actor: outbox.ActorAdmin})
}

// ConfirmForCart confirms an order owned by the caller's cart.
func (s *service) ConfirmForCart(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*TransitionResult, error) {
	if !cc.HasCart() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	cartID := cc.CartID
	return s.runTransition(ctx, "confirm", orderID, enums.OrderStatusConfirmed, transitionOpts{actor: outbox.ActorShopper, cartID: &cartID})
}

// CancelForCart cancels an order owned by the caller's cart.
func (s *service) CancelForCart(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*TransitionResult, error) {
	if !cc.HasCart() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	cartID := cc.CartID
	return s.runTransition(ctx, "cancel", orderID, enums.OrderStatusCancelled, transitionOpts{actor: outbox.ActorShopper, cartID: &cartID})
}

// CancelPendingTx cancels the cart's pending order, if any, inside the
// caller's transaction.
func (s *service) CancelPendingTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (*uuid.UUID, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required to cancel pending order")
	}
	pending, err := s.repo.WithTx(tx).FindPendingByCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending order")
	}
	res, err := s.transitionTx(ctx, tx, pending.ID, enums.OrderStatusCancelled, transitionOpts{actor: outbox.ActorShopper, cartID: &cartID})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncTransition(res.OldStatus.String(), res.NewStatus.String())
	}
	return &res.OrderID, nil
}

func (s *service) runTransition(ctx context.Context, operation string, orderID uuid.UUID, target enums.OrderStatus, opts transitionOpts) (*TransitionResult, error) {
	var res *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.transitionTx(ctx, tx, orderID, target, opts)
		return err
	})
	if err != nil {
		s.recordRejection(operation, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncTransition(res.OldStatus.String(), res.NewStatus.String())
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
			"old_status": res.OldStatus,
			"new_status": res.NewStatus,
			"actor":      opts.actor,
		})
		s.logg.Info(logCtx, "order status changed")
	}
	return res, nil
}

// transitionTx runs one status change and its side effects inside tx. The
// order row is locked and the status write is conditional on the status
// that was read, so concurrent callers cannot both succeed.
func (s *service) transitionTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, target enums.OrderStatus, opts transitionOpts) (*TransitionResult, error) {
	repo := s.repo.WithTx(tx)
	order, err := repo.LockByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if opts.cartID != nil && order.CartID != *opts.cartID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err := s.guard.Guard(ctx, tx, order.PhoneNumber); err != nil {
		return nil, err
	}

	from := order.Status
	if err := ValidateTransition(from, target); err != nil {
		return nil, err
	}
	updated, err := repo.UpdateStatus(ctx, order.ID, from, target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order status changed concurrently").
			WithDetails(map[string]any{"from": from, "to": target})
	}

	switch target {
	case enums.OrderStatusConfirmed:
		err = s.confirmTx(ctx, tx, repo, order)
	case enums.OrderStatusPrinting:
		err = s.printTx(ctx, tx, repo, order)
	case enums.OrderStatusCancelled:
		err = s.cancelTx(ctx, tx, repo, order, from)
	}
	if err != nil {
		return nil, err
	}

	actor := &outbox.ActorRef{Kind: opts.actor}
	if opts.actor == outbox.ActorShopper {
		cartID := order.CartID
		actor.CartID = &cartID
	}
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:   order.ID,
			CartID:    order.CartID,
			OldStatus: from,
			NewStatus: target,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order status event")
	}
	return &TransitionResult{OrderID: order.ID, OldStatus: from, NewStatus: target}, nil
}

// confirmTx freezes the cart into order items, opens the shipping record
// and empties the cart.
func (s *service) confirmTx(ctx context.Context, tx *gorm.DB, repo OrderRepository, order *models.Order) error {
	lines, err := repo.CartLines(ctx, order.CartID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if _, err := s.checkLines(ctx, tx, lines, true); err != nil {
		return err
	}

	itemIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		itemIDs = append(itemIDs, *line.ItemID)
	}
	catalog, err := repo.CatalogItems(ctx, itemIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load items")
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item, ok := catalog[*line.ItemID]
		if !ok {
			return itemUnavailable(line.ItemName)
		}
		itemID, variantID := *line.ItemID, *line.InventoryID
		items = append(items, models.OrderItem{
			OrderID:     order.ID,
			ItemID:      &itemID,
			ItemName:    line.ItemName,
			InventoryID: &variantID,
			Quantity:    line.Quantity,
			TotalPrice:  item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	if err := repo.CreateItems(ctx, items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
	}
	if _, err := s.shipping.CreateTx(ctx, tx, order.ID); err != nil {
		return err
	}
	if err := repo.DeleteCartLines(ctx, order.CartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// printTx removes the order's quantities from the ledger. A line whose
// variant was deleted cannot be printed.
func (s *service) printTx(ctx context.Context, tx *gorm.DB, repo OrderRepository, order *models.Order) error {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	demand := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.InventoryID == nil {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock to print order").
				WithDetails(map[string]any{"item_name": item.ItemName, "requested": item.Quantity, "on_hand": 0})
		}
		demand[*item.InventoryID] += item.Quantity
	}
	return s.stock.DecrementTx(ctx, tx, demand)
}

// cancelTx drops the shipping record. Cancelling a pending order also
// empties its cart. Stock is never restored.
func (s *service) cancelTx(ctx context.Context, tx *gorm.DB, repo OrderRepository, order *models.Order, from enums.OrderStatus) error {
	if err := s.shipping.DeleteTx(ctx, tx, order.ID); err != nil {
		return err
	}
	if from == enums.OrderStatusPending {
		if err := repo.DeleteCartLines(ctx, order.CartID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
	}
	return nil
}

// checkLines verifies every cart line still points at a live item and
// variant and that the per-variant demand fits availability. With lock set
// the variants are row-locked first.
func (s *service) checkLines(ctx context.Context, tx *gorm.DB, lines []models.CartItem, lock bool) (map[uuid.UUID]int, error) {
	demand := make(map[uuid.UUID]int, len(lines))
	names := make(map[uuid.UUID]string, len(lines))
	for _, line := range lines {
		if line.ItemID == nil {
			return nil, itemUnavailable(line.ItemName)
		}
		if line.InventoryID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStockUnavailable, "item is out of stock").
				WithDetails(map[string]any{"item_name": line.ItemName, "requested": line.Quantity, "available": 0})
		}
		demand[*line.InventoryID] += line.Quantity
		names[*line.InventoryID] = line.ItemName
	}

	ids := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var (
		avail map[uuid.UUID]inventory.Availability
		err   error
	)
	if lock {
		avail, err = s.stock.LockVariantsTx(ctx, tx, ids)
	} else {
		avail, err = s.stock.AvailabilityFor(ctx, tx, ids)
	}
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		a, ok := avail[id]
		sellable := 0
		if ok {
			sellable = a.Sellable()
		}
		if !ok || demand[id] > sellable {
			return nil, pkgerrors.New(pkgerrors.CodeStockUnavailable, "item is out of stock").
				WithDetails(map[string]any{
					"item_name":  names[id],
					"variant_id": id.String(),
					"requested":  demand[id],
					"available":  sellable,
				})
		}
	}
	return demand, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return s.buildDTO(ctx, order)
}

func (s *service) GetForCart(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*OrderDTO, error) {
	dto, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !cc.HasCart() || dto.CartID != cc.CartID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return dto, nil
}

// Total sums the frozen order items. A pending order has none yet, so its
// total is previewed from the cart at current prices.
func (s *service) Total(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	dto, err := s.Get(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	return dto.Total, nil
}

func (s *service) buildDTO(ctx context.Context, order *models.Order) (*OrderDTO, error) {
	dto := &OrderDTO{
		ID:         order.ID,
		CartID:     order.CartID,
		Status:     order.Status,
		NextStatus: AllowedTransitions(order.Status),
		Shipping:   shippingInfoOf(order),
		Items:      []OrderItemDTO{},
		Total:      decimal.Zero,
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}

	items, err := s.orderLines(ctx, order)
	if err != nil {
		return nil, err
	}
	variantIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.InventoryID != nil {
			variantIDs = append(variantIDs, *item.InventoryID)
		}
	}
	avail, err := s.stock.AvailabilityFor(ctx, nil, variantIDs)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		size := ""
		if item.InventoryID != nil {
			size = avail[*item.InventoryID].Size
		}
		line := newOrderItemDTO(item, size)
		dto.Total = dto.Total.Add(line.TotalPrice)
		dto.Items = append(dto.Items, line)
	}

	record, err := s.shipping.FindByOrder(ctx, nil, order.ID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		dto.Tracking = &ShippingDTO{TrackingNumber: record.TrackingNumber, EstimatedDelivery: record.EstimatedDelivery}
	}
	return dto, nil
}

// orderLines returns the frozen items, or a preview built from the cart
// while the order is still pending.
func (s *service) orderLines(ctx context.Context, order *models.Order) ([]models.OrderItem, error) {
	if order.Status != enums.OrderStatusPending {
		items, err := s.repo.ListItems(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		return items, nil
	}

	lines, err := s.repo.CartLines(ctx, order.CartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}
	itemIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.ItemID != nil {
			itemIDs = append(itemIDs, *line.ItemID)
		}
	}
	catalog, err := s.repo.CatalogItems(ctx, itemIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load items")
	}
	out := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		total := decimal.Zero
		if line.ItemID != nil {
			if item, ok := catalog[*line.ItemID]; ok {
				total = item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			}
		}
		out = append(out, models.OrderItem{
			ID:          line.ID,
			OrderID:     order.ID,
			ItemID:      line.ItemID,
			ItemName:    line.ItemName,
			InventoryID: line.InventoryID,
			Quantity:    line.Quantity,
			TotalPrice:  total,
		})
	}
	return out, nil
}

func (s *service) ListByCart(ctx context.Context, cc types.CartContext, params pagination.Params) (pagination.Page[OrderSummaryDTO], error) {
	if !cc.HasCart() {
		return pagination.Page[OrderSummaryDTO]{Items: []OrderSummaryDTO{}}, nil
	}
	rows, err := s.repo.ListByCart(ctx, cc.CartID, params)
	if err != nil {
		return pagination.Page[OrderSummaryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list orders")
	}
	summaries := make([]OrderSummaryDTO, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, newSummaryDTO(row))
	}
	return pagination.Trim(summaries, params.Limit, func(o OrderSummaryDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// LatestShippingInfo returns the contact details of the cart's most recent
// order so a new order form can be prefilled.
func (s *service) LatestShippingInfo(ctx context.Context, cc types.CartContext) (*ShippingInfo, error) {
	if !cc.HasCart() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no previous order")
	}
	order, err := s.repo.LatestByCart(ctx, cc.CartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no previous order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest order")
	}
	info := shippingInfoOf(order)
	return &info, nil
}

// UpdateShippingInfo edits the contact details of a pending order. The new
// phone number goes through the blacklist and the cart is re-checked.
func (s *service) UpdateShippingInfo(ctx context.Context, cc types.CartContext, orderID uuid.UUID, input ShippingInfo) (*OrderDTO, error) {
	info := input.Normalize()
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if !cc.HasCart() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CartID != cc.CartID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "only pending orders can be edited")
		}
		if err := s.guard.Guard(ctx, tx, info.PhoneNumber); err != nil {
			return err
		}
		lines, err := repo.CartLines(ctx, order.CartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		if _, err := s.checkLines(ctx, tx, lines, false); err != nil {
			return err
		}
		updated, err := repo.UpdateShippingInfo(ctx, order.ID, info)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipping info")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "only pending orders can be edited")
		}
		return nil
	})
	if err != nil {
		s.recordRejection("update_shipping_info", err)
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) recordRejection(operation string, err error) {
	if s.metrics == nil {
		return
	}
	if typed := pkgerrors.As(err); typed != nil {
		s.metrics.IncRejection(operation, string(typed.Code()))
	}
}

func pendingExists(orderID uuid.UUID) error {
	e := pkgerrors.New(pkgerrors.CodePendingOrderExists, "a pending order already exists for this cart")
	if orderID != uuid.Nil {
		return e.WithDetails(map[string]any{"order_id": orderID.String()})
	}
	return e
}

func itemUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeItemUnavailable, "item is no longer available").
		WithDetails(map[string]any{"item_name": name})
}
