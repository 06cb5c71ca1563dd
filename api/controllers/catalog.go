package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/api/responses"
	"github.com/angelmondragon/estore-backend/api/validators"
	"github.com/angelmondragon/estore-backend/internal/catalog"
	"github.com/angelmondragon/estore-backend/internal/inventory"
	"github.com/angelmondragon/estore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
)

// CatalogReader is the read side of the catalog used by shopper routes.
type CatalogReader interface {
	ListTypes(ctx context.Context) ([]models.ItemType, error)
	ListItems(ctx context.Context, itemType string) ([]catalog.ItemDTO, error)
	GetItemDetail(ctx context.Context, itemID uuid.UUID) (*catalog.ItemDetailDTO, error)
	SizesWithStatus(ctx context.Context, itemID uuid.UUID) ([]catalog.SizeStatus, error)
}

type AvailabilityReader interface {
	Available(ctx context.Context, variantID uuid.UUID) (inventory.Availability, error)
}

type availabilityResponse struct {
	VariantID uuid.UUID `json:"variant_id"`
	ItemType  string    `json:"item_type"`
	Size      string    `json:"size"`
	Available int       `json:"available"`
	InStock   bool      `json:"in_stock"`
}

func newAvailabilityResponse(a inventory.Availability) availabilityResponse {
	return availabilityResponse{
		VariantID: a.VariantID,
		ItemType:  a.ItemType,
		Size:      a.Size,
		Available: a.Sellable(),
		InStock:   a.InStock(),
	}
}

func ItemTypesList(svc CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := svc.ListTypes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types)
	}
}

// ItemsList lists the catalog, optionally filtered by ?type=.
func ItemsList(svc CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemType := validators.SanitizeString(r.URL.Query().Get("type"), 64)
		items, err := svc.ListItems(r.Context(), strings.ToLower(itemType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ItemDetail(svc CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.GetItemDetail(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func ItemSizes(svc CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sizes, err := svc.SizesWithStatus(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sizes)
	}
}

// InventoryAvailability reports sellable stock for one variant. The raw
// ledger and committed figures stay internal.
func InventoryAvailability(svc AvailabilityReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		variantID, err := validators.ParseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		availability, err := svc.Available(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAvailabilityResponse(availability))
	}
}
