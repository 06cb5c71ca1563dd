package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/internal/orders"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/pagination"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

const shippingBody = `{
	"first_name": "Amine",
	"last_name": "Haddad",
	"email": "amine@example.com",
	"phone_number": "0555 12 34 56",
	"address": "12 rue Didouche Mourad",
	"city": "Algers",
	"postal_code": "16000"
}`

func TestOrderCreatePassesCartAndClientIP(t *testing.T) {
	cartID := uuid.New()
	orderID := uuid.New()
	var gotCart types.CartContext
	var gotInput orders.CreateInput
	svc := &stubOrdersService{
		create: func(_ context.Context, cc types.CartContext, input orders.CreateInput) (*orders.OrderDTO, error) {
			gotCart = cc
			gotInput = input
			return &orders.OrderDTO{ID: orderID, CartID: cc.CartID, Status: enums.OrderStatusPending}, nil
		},
	}
	req := newRequest(http.MethodPost, "/api/v1/orders", shippingBody, cartID)
	req.Header.Set("X-Forwarded-For", "41.105.7.7, 10.0.0.1")

	rec := serve(http.MethodPost, "/api/v1/orders", OrderCreate(svc, nil), req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCart.CartID != cartID {
		t.Fatalf("expected cart %s, got %s", cartID, gotCart.CartID)
	}
	if gotInput.IPAddress != "41.105.7.7" {
		t.Fatalf("expected first forwarded ip, got %q", gotInput.IPAddress)
	}
	if gotInput.Shipping.City != "Algers" || gotInput.Shipping.PhoneNumber != "0555 12 34 56" {
		t.Fatalf("shipping info not forwarded: %+v", gotInput.Shipping)
	}
	var dto orders.OrderDTO
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.ID != orderID || dto.Status != enums.OrderStatusPending {
		t.Fatalf("unexpected order %+v", dto)
	}
}

func TestOrderCreateRejectsUnknownFields(t *testing.T) {
	svc := &stubOrdersService{
		create: func(context.Context, types.CartContext, orders.CreateInput) (*orders.OrderDTO, error) {
			t.Fatal("service must not run")
			return nil, nil
		},
	}
	rec := serve(http.MethodPost, "/api/v1/orders", OrderCreate(svc, nil), newRequest(http.MethodPost, "/api/v1/orders", `{"status":"confirmed"}`, uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOrderCreateSurfacesDomainRejections(t *testing.T) {
	tests := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeBlacklisted, http.StatusForbidden},
		{pkgerrors.CodePendingOrderExists, http.StatusConflict},
		{pkgerrors.CodeStockUnavailable, http.StatusConflict},
		{pkgerrors.CodeValidation, http.StatusBadRequest},
	}
	for _, tt := range tests {
		svc := &stubOrdersService{
			create: func(context.Context, types.CartContext, orders.CreateInput) (*orders.OrderDTO, error) {
				return nil, pkgerrors.New(tt.code, "rejected")
			},
		}
		rec := serve(http.MethodPost, "/api/v1/orders", OrderCreate(svc, nil), newRequest(http.MethodPost, "/api/v1/orders", shippingBody, uuid.New()))
		if rec.Code != tt.status {
			t.Fatalf("%s: expected %d, got %d", tt.code, tt.status, rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Error.Code != string(tt.code) {
			t.Fatalf("expected code %s, got %s", tt.code, env.Error.Code)
		}
	}
}

func TestOrderListParsesPagination(t *testing.T) {
	cartID := uuid.New()
	var got pagination.Params
	svc := &stubOrdersService{
		listByCart: func(_ context.Context, cc types.CartContext, params pagination.Params) (pagination.Page[orders.OrderSummaryDTO], error) {
			got = params
			return pagination.Page[orders.OrderSummaryDTO]{Items: []orders.OrderSummaryDTO{{ID: uuid.New()}}}, nil
		},
	}

	rec := serve(http.MethodGet, "/api/v1/orders", OrderList(svc, nil), newRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", "", cartID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Limit != 5 || got.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", got)
	}

	rec = serve(http.MethodGet, "/api/v1/orders", OrderList(svc, nil), newRequest(http.MethodGet, "/api/v1/orders?limit=1000", "", cartID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range limit, got %d", rec.Code)
	}
}

func TestOrderDetailHidesForeignOrders(t *testing.T) {
	svc := &stubOrdersService{
		getForCart: func(context.Context, types.CartContext, uuid.UUID) (*orders.OrderDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}
	target := "/api/v1/orders/" + uuid.NewString()
	rec := serve(http.MethodGet, "/api/v1/orders/{orderId}", OrderDetail(svc, nil), newRequest(http.MethodGet, target, "", uuid.New()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOrderConfirmAndCancelUseCartScopedPaths(t *testing.T) {
	cartID := uuid.New()
	orderID := uuid.New()
	var confirmed, cancelled bool
	svc := &stubOrdersService{
		confirmFor: func(_ context.Context, cc types.CartContext, id uuid.UUID) (*orders.TransitionResult, error) {
			confirmed = cc.CartID == cartID && id == orderID
			return &orders.TransitionResult{OrderID: id, OldStatus: enums.OrderStatusPending, NewStatus: enums.OrderStatusConfirmed}, nil
		},
		cancelFor: func(_ context.Context, cc types.CartContext, id uuid.UUID) (*orders.TransitionResult, error) {
			cancelled = cc.CartID == cartID && id == orderID
			return &orders.TransitionResult{OrderID: id, OldStatus: enums.OrderStatusConfirmed, NewStatus: enums.OrderStatusCancelled}, nil
		},
	}

	rec := serve(http.MethodPost, "/api/v1/orders/{orderId}/confirm", OrderConfirm(svc, nil), newRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/confirm", "", cartID))
	if rec.Code != http.StatusOK || !confirmed {
		t.Fatalf("confirm: status %d confirmed=%v", rec.Code, confirmed)
	}
	rec = serve(http.MethodPost, "/api/v1/orders/{orderId}/cancel", OrderCancel(svc, nil), newRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", "", cartID))
	if rec.Code != http.StatusOK || !cancelled {
		t.Fatalf("cancel: status %d cancelled=%v", rec.Code, cancelled)
	}
}

func TestOrderUpdateShippingForwardsInfo(t *testing.T) {
	orderID := uuid.New()
	var got orders.ShippingInfo
	svc := &stubOrdersService{
		updateShipTo: func(_ context.Context, _ types.CartContext, id uuid.UUID, info orders.ShippingInfo) (*orders.OrderDTO, error) {
			got = info
			return &orders.OrderDTO{ID: id, Shipping: info}, nil
		},
	}
	rec := serve(http.MethodPatch, "/api/v1/orders/{orderId}", OrderUpdateShipping(svc, nil), newRequest(http.MethodPatch, "/api/v1/orders/"+orderID.String(), shippingBody, uuid.New()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.FirstName != "Amine" || got.PostalCode != "16000" {
		t.Fatalf("unexpected shipping info %+v", got)
	}
}

func TestOrderPrefillNotFoundWithoutHistory(t *testing.T) {
	svc := &stubOrdersService{
		latest: func(context.Context, types.CartContext) (*orders.ShippingInfo, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no previous order")
		},
	}
	rec := serve(http.MethodGet, "/api/v1/orders/prefill", OrderPrefill(svc, nil), newRequest(http.MethodGet, "/api/v1/orders/prefill", "", uuid.New()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
