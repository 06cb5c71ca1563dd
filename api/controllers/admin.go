package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/api/responses"
	"github.com/angelmondragon/estore-backend/api/validators"
	"github.com/angelmondragon/estore-backend/internal/inventory"
	"github.com/angelmondragon/estore-backend/internal/orders"
	"github.com/angelmondragon/estore-backend/internal/shipping"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	"github.com/angelmondragon/estore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

type StockWriter interface {
	SetQuantity(ctx context.Context, variantID uuid.UUID, qty int) (inventory.Availability, error)
}

type TrackingUpdater interface {
	UpdateTracking(ctx context.Context, orderID uuid.UUID, update shipping.TrackingUpdate) (*models.Shipping, error)
}

type ItemDeleter interface {
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type trackingRequest struct {
	TrackingNumber    *string `json:"tracking_number"`
	EstimatedDelivery *string `json:"estimated_delivery"`
}

type trackingResponse struct {
	OrderID           uuid.UUID `json:"order_id"`
	TrackingNumber    *string   `json:"tracking_number,omitempty"`
	EstimatedDelivery *string   `json:"estimated_delivery,omitempty"`
}

func AdminOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderTransition moves an order along the status graph. Cancellation
// takes the dedicated cancel path so its side effects run.
func AdminOrderTransition(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status").WithDetails(map[string]any{"field": "status"}))
			return
		}

		var result *orders.TransitionResult
		if target == enums.OrderStatusCancelled {
			result, err = svc.Cancel(r.Context(), orderID)
		} else {
			result, err = svc.Transition(r.Context(), orderID, target)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminSetInventory overwrites a variant's ledger quantity.
func AdminSetInventory(svc StockWriter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := validators.ParseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		availability, err := svc.SetQuantity(r.Context(), variantID, *req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, availability)
	}
}

// AdminUpdateTracking sets the tracking number and/or estimated delivery
// date (YYYY-MM-DD) of a confirmed order.
func AdminUpdateTracking(svc TrackingUpdater, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req trackingRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		update := shipping.TrackingUpdate{TrackingNumber: req.TrackingNumber}
		if req.EstimatedDelivery != nil {
			day, err := time.Parse(dateLayout, strings.TrimSpace(*req.EstimatedDelivery))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "estimated_delivery must be YYYY-MM-DD").WithDetails(map[string]any{"field": "estimated_delivery"}))
				return
			}
			update.EstimatedDelivery = &day
		}
		record, err := svc.UpdateTracking(r.Context(), orderID, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := trackingResponse{OrderID: record.OrderID, TrackingNumber: record.TrackingNumber}
		if record.EstimatedDelivery != nil {
			day := record.EstimatedDelivery.Format(dateLayout)
			resp.EstimatedDelivery = &day
		}
		responses.WriteSuccess(w, resp)
	}
}

// AdminDeleteItem removes a catalog item. Cart and order lines keep its name
// as an archived reference.
func AdminDeleteItem(svc ItemDeleter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteItem(r.Context(), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
