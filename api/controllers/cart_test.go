package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/api/middleware"
	"github.com/angelmondragon/estore-backend/internal/cart"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

func TestCartResolveCreatesCartWhenHeaderMissing(t *testing.T) {
	created := uuid.New()
	svc := &stubCartService{
		createOrGet: func(_ context.Context, cc types.CartContext) (*models.Cart, error) {
			if cc.HasCart() {
				t.Fatalf("expected empty cart context, got %s", cc.CartID)
			}
			return &models.Cart{ID: created}, nil
		},
		get: func(_ context.Context, cc types.CartContext) (*cart.CartDTO, error) {
			return &cart.CartDTO{ID: cc.CartID, Items: []cart.LineDTO{}}, nil
		},
	}

	rec := serve(http.MethodPost, "/api/v1/cart", CartResolve(svc, nil), newRequest(http.MethodPost, "/api/v1/cart", "", uuid.Nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got := rec.Header().Get(middleware.CartIDHeader); got != created.String() {
		t.Fatalf("expected resolved cart id header %s, got %q", created, got)
	}
}

func TestCartResolveReplacesUnknownCartID(t *testing.T) {
	stale := uuid.New()
	fresh := uuid.New()
	svc := &stubCartService{
		createOrGet: func(_ context.Context, cc types.CartContext) (*models.Cart, error) {
			if cc.CartID != stale {
				t.Fatalf("expected stale cart id %s, got %s", stale, cc.CartID)
			}
			return &models.Cart{ID: fresh}, nil
		},
		get: func(_ context.Context, cc types.CartContext) (*cart.CartDTO, error) {
			return &cart.CartDTO{ID: cc.CartID, Items: []cart.LineDTO{}}, nil
		},
	}

	rec := serve(http.MethodGet, "/api/v1/cart", CartResolve(svc, nil), newRequest(http.MethodGet, "/api/v1/cart", "", stale))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got := rec.Header().Get(middleware.CartIDHeader); got != fresh.String() {
		t.Fatalf("expected fresh cart id header %s, got %q", fresh, got)
	}
}

func TestCartResolveReturnsExistingCart(t *testing.T) {
	existing := uuid.New()
	svc := &stubCartService{
		createOrGet: func(_ context.Context, cc types.CartContext) (*models.Cart, error) {
			return &models.Cart{ID: cc.CartID}, nil
		},
		get: func(_ context.Context, cc types.CartContext) (*cart.CartDTO, error) {
			return &cart.CartDTO{ID: cc.CartID}, nil
		},
	}

	rec := serve(http.MethodGet, "/api/v1/cart", CartResolve(svc, nil), newRequest(http.MethodGet, "/api/v1/cart", "", existing))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var dto cart.CartDTO
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &dto); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if dto.ID != existing {
		t.Fatalf("expected cart %s, got %s", existing, dto.ID)
	}
}

func TestCartAddItemValidatesBody(t *testing.T) {
	svc := &stubCartService{
		addItem: func(context.Context, types.CartContext, cart.AddItemInput) (*cart.CartDTO, error) {
			t.Fatal("service must not run for an invalid body")
			return nil, nil
		},
	}
	body := `{"item_id":"` + uuid.NewString() + `","quantity":0}`

	rec := serve(http.MethodPost, "/api/v1/cart/items", CartAddItem(svc, nil), newRequest(http.MethodPost, "/api/v1/cart/items", body, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", env.Error.Code)
	}
	if _, ok := env.Error.Details["size"]; !ok {
		t.Fatalf("expected size field error, got %v", env.Error.Details)
	}
}

func TestCartAddItemPassesInputAndEchoesCart(t *testing.T) {
	cartID := uuid.New()
	itemID := uuid.New()
	var got cart.AddItemInput
	svc := &stubCartService{
		addItem: func(_ context.Context, cc types.CartContext, input cart.AddItemInput) (*cart.CartDTO, error) {
			got = input
			return &cart.CartDTO{ID: cartID}, nil
		},
	}
	body := `{"item_id":"` + itemID.String() + `","size":"M","quantity":2}`

	rec := serve(http.MethodPost, "/api/v1/cart/items", CartAddItem(svc, nil), newRequest(http.MethodPost, "/api/v1/cart/items", body, uuid.Nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.ItemID != itemID || got.Size != "M" || got.Quantity != 2 {
		t.Fatalf("unexpected input %+v", got)
	}
	if rec.Header().Get(middleware.CartIDHeader) != cartID.String() {
		t.Fatalf("expected cart id header for the cart created on add")
	}
}

func TestCartAdjustItemMapsRelativeAndAbsolute(t *testing.T) {
	cartID := uuid.New()
	lineID := uuid.New()
	var got cart.Adjustment
	svc := &stubCartService{
		adjustItem: func(_ context.Context, cc types.CartContext, id uuid.UUID, adj cart.Adjustment) (*cart.CartDTO, error) {
			if cc.CartID != cartID || id != lineID {
				t.Fatalf("unexpected cart %s line %s", cc.CartID, id)
			}
			got = adj
			return &cart.CartDTO{ID: cartID}, nil
		},
	}
	target := "/api/v1/cart/items/" + lineID.String()

	rec := serve(http.MethodPatch, "/api/v1/cart/items/{cartItemId}", CartAdjustItem(svc, nil), newRequest(http.MethodPatch, target, `{"delta":-1}`, cartID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Delta == nil || *got.Delta != -1 || got.Absolute != nil {
		t.Fatalf("expected relative adjustment, got %+v", got)
	}

	rec = serve(http.MethodPatch, "/api/v1/cart/items/{cartItemId}", CartAdjustItem(svc, nil), newRequest(http.MethodPatch, target, `{"quantity":3}`, cartID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Absolute == nil || *got.Absolute != 3 || got.Delta != nil {
		t.Fatalf("expected absolute adjustment, got %+v", got)
	}
}

func TestCartRemoveItemReportsCancelledOrder(t *testing.T) {
	cartID := uuid.New()
	orderID := uuid.New()
	svc := &stubCartService{
		removeItem: func(_ context.Context, cc types.CartContext, _ uuid.UUID) (*cart.RemoveResult, error) {
			return &cart.RemoveResult{Cart: &cart.CartDTO{ID: cc.CartID}, CancelledOrderID: &orderID}, nil
		},
	}

	rec := serve(http.MethodDelete, "/api/v1/cart/items/{cartItemId}", CartRemoveItem(svc, nil), newRequest(http.MethodDelete, "/api/v1/cart/items/"+uuid.NewString(), "", cartID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result cart.RemoveResult
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.CancelledOrderID == nil || *result.CancelledOrderID != orderID {
		t.Fatalf("expected cancelled order %s, got %v", orderID, result.CancelledOrderID)
	}
}

func TestCartRemoveItemRejectsBadLineID(t *testing.T) {
	svc := &stubCartService{}
	rec := serve(http.MethodDelete, "/api/v1/cart/items/{cartItemId}", CartRemoveItem(svc, nil), newRequest(http.MethodDelete, "/api/v1/cart/items/not-a-uuid", "", uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
