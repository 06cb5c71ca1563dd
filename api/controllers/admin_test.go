package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/internal/inventory"
	"github.com/angelmondragon/estore-backend/internal/orders"
	"github.com/angelmondragon/estore-backend/internal/shipping"
	"github.com/angelmondragon/estore-backend/pkg/config"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
)

type stubStockWriter struct {
	variantID uuid.UUID
	qty       int
	calls     int
}

func (s *stubStockWriter) SetQuantity(_ context.Context, variantID uuid.UUID, qty int) (inventory.Availability, error) {
	s.calls++
	s.variantID, s.qty = variantID, qty
	return inventory.Availability{VariantID: variantID, Ledger: qty}, nil
}

type stubTrackingUpdater struct {
	update shipping.TrackingUpdate
}

func (s *stubTrackingUpdater) UpdateTracking(_ context.Context, orderID uuid.UUID, update shipping.TrackingUpdate) (*models.Shipping, error) {
	s.update = update
	return &models.Shipping{OrderID: orderID, TrackingNumber: update.TrackingNumber, EstimatedDelivery: update.EstimatedDelivery}, nil
}

type stubItemDeleter struct {
	err error
}

func (s *stubItemDeleter) DeleteItem(context.Context, uuid.UUID) error { return s.err }

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestAdminOrderTransitionRoutesCancelSeparately(t *testing.T) {
	orderID := uuid.New()
	var transitioned enums.OrderStatus
	var cancelled bool
	svc := &stubOrdersService{
		transition: func(_ context.Context, id uuid.UUID, target enums.OrderStatus) (*orders.TransitionResult, error) {
			transitioned = target
			return &orders.TransitionResult{OrderID: id, NewStatus: target}, nil
		},
		cancel: func(_ context.Context, id uuid.UUID) (*orders.TransitionResult, error) {
			cancelled = true
			return &orders.TransitionResult{OrderID: id, NewStatus: enums.OrderStatusCancelled}, nil
		},
	}
	pattern := "/api/admin/v1/orders/{orderId}/transition"
	target := "/api/admin/v1/orders/" + orderID.String() + "/transition"

	rec := serve(http.MethodPost, pattern, AdminOrderTransition(svc, nil), newRequest(http.MethodPost, target, `{"status":"Shipped"}`, uuid.Nil))
	if rec.Code != http.StatusOK || transitioned != enums.OrderStatusShipped {
		t.Fatalf("expected shipped transition, status %d target %q", rec.Code, transitioned)
	}

	rec = serve(http.MethodPost, pattern, AdminOrderTransition(svc, nil), newRequest(http.MethodPost, target, `{"status":"cancelled"}`, uuid.Nil))
	if rec.Code != http.StatusOK || !cancelled {
		t.Fatalf("expected cancel path, status %d cancelled=%v", rec.Code, cancelled)
	}

	rec = serve(http.MethodPost, pattern, AdminOrderTransition(svc, nil), newRequest(http.MethodPost, target, `{"status":"lost"}`, uuid.Nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestAdminOrderTransitionReportsInvalidTransition(t *testing.T) {
	svc := &stubOrdersService{
		transition: func(context.Context, uuid.UUID, enums.OrderStatus) (*orders.TransitionResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move from delivered to shipped")
		},
	}
	target := "/api/admin/v1/orders/" + uuid.NewString() + "/transition"
	rec := serve(http.MethodPost, "/api/admin/v1/orders/{orderId}/transition", AdminOrderTransition(svc, nil), newRequest(http.MethodPost, target, `{"status":"shipped"}`, uuid.Nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestAdminSetInventory(t *testing.T) {
	variantID := uuid.New()
	pattern := "/api/admin/v1/inventory/{variantId}"
	target := "/api/admin/v1/inventory/" + variantID.String()

	stock := &stubStockWriter{}
	rec := serve(http.MethodPut, pattern, AdminSetInventory(stock, nil), newRequest(http.MethodPut, target, `{"quantity":0}`, uuid.Nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stock.variantID != variantID || stock.qty != 0 {
		t.Fatalf("unexpected write %s=%d", stock.variantID, stock.qty)
	}

	for _, body := range []string{`{}`, `{"quantity":-1}`} {
		rec = serve(http.MethodPut, pattern, AdminSetInventory(stock, nil), newRequest(http.MethodPut, target, body, uuid.Nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
	if stock.calls != 1 {
		t.Fatalf("invalid bodies must not reach the ledger, calls=%d", stock.calls)
	}
}

func TestAdminUpdateTrackingParsesDate(t *testing.T) {
	orderID := uuid.New()
	updater := &stubTrackingUpdater{}
	pattern := "/api/admin/v1/orders/{orderId}/shipping"
	target := "/api/admin/v1/orders/" + orderID.String() + "/shipping"

	rec := serve(http.MethodPut, pattern, AdminUpdateTracking(updater, nil), newRequest(http.MethodPut, target, `{"tracking_number":"YAL-123","estimated_delivery":"2026-10-20"}`, uuid.Nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	if updater.update.EstimatedDelivery == nil || !updater.update.EstimatedDelivery.Equal(want) {
		t.Fatalf("unexpected delivery date %v", updater.update.EstimatedDelivery)
	}
	var resp trackingResponse
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.EstimatedDelivery == nil || *resp.EstimatedDelivery != "2026-10-20" || *resp.TrackingNumber != "YAL-123" {
		t.Fatalf("unexpected response %+v", resp)
	}

	rec = serve(http.MethodPut, pattern, AdminUpdateTracking(updater, nil), newRequest(http.MethodPut, target, `{"estimated_delivery":"20/10/2026"}`, uuid.Nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", rec.Code)
	}
}

func TestAdminDeleteItem(t *testing.T) {
	pattern := "/api/admin/v1/items/{itemId}"
	target := "/api/admin/v1/items/" + uuid.NewString()

	rec := serve(http.MethodDelete, pattern, AdminDeleteItem(&stubItemDeleter{}, nil), newRequest(http.MethodDelete, target, "", uuid.Nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	missing := &stubItemDeleter{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not found")}
	rec = serve(http.MethodDelete, pattern, AdminDeleteItem(missing, nil), newRequest(http.MethodDelete, target, "", uuid.Nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	deps := map[string]Pinger{
		"db":     stubPinger{},
		"redis":  stubPinger{err: errors.New("connection refused")},
		"pubsub": nil,
	}

	rec := serve(http.MethodGet, "/health/ready", HealthReady(cfg, nil, deps), newRequest(http.MethodGet, "/health/ready", "", uuid.Nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if _, ok := env.Error.Details["redis"]; !ok {
		t.Fatalf("expected redis failure in details, got %v", env.Error.Details)
	}

	deps["redis"] = stubPinger{}
	rec = serve(http.MethodGet, "/health/ready", HealthReady(cfg, nil, deps), newRequest(http.MethodGet, "/health/ready", "", uuid.Nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
