package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/api/responses"
	"github.com/angelmondragon/estore-backend/api/validators"
	"github.com/angelmondragon/estore-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

type addItemRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Size     string    `json:"size" validate:"required,max=16"`
	Quantity int       `json:"quantity" validate:"required,gte=1"`
}

// adjustItemRequest carries either a relative delta or an absolute quantity.
type adjustItemRequest struct {
	Delta    *int `json:"delta"`
	Quantity *int `json:"quantity"`
}

// CartResolve returns the caller's cart, creating one when the X-Cart-Id
// header is missing or points at a cart that no longer exists.
func CartResolve(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		cc := cartContext(r)
		resolved, err := svc.CreateOrGet(r.Context(), cc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), types.CartContext{CartID: resolved.ID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		setCartID(w, resolved.ID)
		status := http.StatusOK
		if resolved.ID != cc.CartID {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, dto)
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.AddItem(r.Context(), cartContext(r), cart.AddItemInput{
			ItemID:   req.ItemID,
			Size:     req.Size,
			Quantity: req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		setCartID(w, dto.ID)
		responses.WriteSuccess(w, dto)
	}
}

func CartAdjustItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "cartItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adjustItemRequest
		if err := validators.DecodeJSON(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.AdjustItem(r.Context(), cartContext(r), lineID, cart.Adjustment{
			Delta:    req.Delta,
			Absolute: req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CartRemoveItem deletes a line. Removing the last line also cancels the
// cart's pending order; the response names it when that happened.
func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "cartItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RemoveItem(r.Context(), cartContext(r), lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
