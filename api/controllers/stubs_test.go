package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/estore-backend/api/middleware"
	"github.com/angelmondragon/estore-backend/internal/cart"
	"github.com/angelmondragon/estore-backend/internal/orders"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	"github.com/angelmondragon/estore-backend/pkg/pagination"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

type stubCartService struct {
	createOrGet func(ctx context.Context, cc types.CartContext) (*models.Cart, error)
	get         func(ctx context.Context, cc types.CartContext) (*cart.CartDTO, error)
	addItem     func(ctx context.Context, cc types.CartContext, input cart.AddItemInput) (*cart.CartDTO, error)
	adjustItem  func(ctx context.Context, cc types.CartContext, lineID uuid.UUID, adj cart.Adjustment) (*cart.CartDTO, error)
	removeItem  func(ctx context.Context, cc types.CartContext, lineID uuid.UUID) (*cart.RemoveResult, error)
}

func (s *stubCartService) CreateOrGet(ctx context.Context, cc types.CartContext) (*models.Cart, error) {
	return s.createOrGet(ctx, cc)
}

func (s *stubCartService) Get(ctx context.Context, cc types.CartContext) (*cart.CartDTO, error) {
	return s.get(ctx, cc)
}

func (s *stubCartService) AddItem(ctx context.Context, cc types.CartContext, input cart.AddItemInput) (*cart.CartDTO, error) {
	return s.addItem(ctx, cc, input)
}

func (s *stubCartService) AdjustItem(ctx context.Context, cc types.CartContext, lineID uuid.UUID, adj cart.Adjustment) (*cart.CartDTO, error) {
	return s.adjustItem(ctx, cc, lineID, adj)
}

func (s *stubCartService) RemoveItem(ctx context.Context, cc types.CartContext, lineID uuid.UUID) (*cart.RemoveResult, error) {
	return s.removeItem(ctx, cc, lineID)
}

func (s *stubCartService) Total(context.Context, uuid.UUID) (decimal.Decimal, error) {
	panic("not implemented")
}

type stubOrdersService struct {
	create       func(ctx context.Context, cc types.CartContext, input orders.CreateInput) (*orders.OrderDTO, error)
	transition   func(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*orders.TransitionResult, error)
	cancel       func(ctx context.Context, orderID uuid.UUID) (*orders.TransitionResult, error)
	confirmFor   func(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*orders.TransitionResult, error)
	cancelFor    func(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*orders.TransitionResult, error)
	getForCart   func(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*orders.OrderDTO, error)
	listByCart   func(ctx context.Context, cc types.CartContext, params pagination.Params) (pagination.Page[orders.OrderSummaryDTO], error)
	latest       func(ctx context.Context, cc types.CartContext) (*orders.ShippingInfo, error)
	updateShipTo func(ctx context.Context, cc types.CartContext, orderID uuid.UUID, info orders.ShippingInfo) (*orders.OrderDTO, error)
}

func (s *stubOrdersService) Create(ctx context.Context, cc types.CartContext, input orders.CreateInput) (*orders.OrderDTO, error) {
	return s.create(ctx, cc, input)
}

func (s *stubOrdersService) Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*orders.TransitionResult, error) {
	return s.transition(ctx, orderID, target)
}

func (s *stubOrdersService) Cancel(ctx context.Context, orderID uuid.UUID) (*orders.TransitionResult, error) {
	return s.cancel(ctx, orderID)
}

func (s *stubOrdersService) ConfirmForCart(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*orders.TransitionResult, error) {
	return s.confirmFor(ctx, cc, orderID)
}

func (s *stubOrdersService) CancelForCart(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*orders.TransitionResult, error) {
	return s.cancelFor(ctx, cc, orderID)
}

func (s *stubOrdersService) CancelPendingTx(context.Context, *gorm.DB, uuid.UUID) (*uuid.UUID, error) {
	panic("not implemented")
}

func (s *stubOrdersService) Get(context.Context, uuid.UUID) (*orders.OrderDTO, error) {
	panic("not implemented")
}

func (s *stubOrdersService) GetForCart(ctx context.Context, cc types.CartContext, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return s.getForCart(ctx, cc, orderID)
}

func (s *stubOrdersService) Total(context.Context, uuid.UUID) (decimal.Decimal, error) {
	panic("not implemented")
}

func (s *stubOrdersService) ListByCart(ctx context.Context, cc types.CartContext, params pagination.Params) (pagination.Page[orders.OrderSummaryDTO], error) {
	return s.listByCart(ctx, cc, params)
}

func (s *stubOrdersService) LatestShippingInfo(ctx context.Context, cc types.CartContext) (*orders.ShippingInfo, error) {
	return s.latest(ctx, cc)
}

func (s *stubOrdersService) UpdateShippingInfo(ctx context.Context, cc types.CartContext, orderID uuid.UUID, info orders.ShippingInfo) (*orders.OrderDTO, error) {
	return s.updateShipTo(ctx, cc, orderID, info)
}

// serve routes one request through a chi router carrying the shopper
// middleware, so path params and the cart context resolve as in production.
func serve(method, pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(middleware.ClientIP())
	r.Use(middleware.CartContext(nil))
	r.Method(method, pattern, handler)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newRequest(method, target, body string, cartID uuid.UUID) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if cartID != uuid.Nil {
		req.Header.Set(middleware.CartIDHeader, cartID.String())
	}
	return req
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}
