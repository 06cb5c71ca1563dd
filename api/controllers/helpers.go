package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/estore-backend/api/middleware"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

// cartContext returns the shopper cart resolved by middleware.CartContext.
func cartContext(r *http.Request) types.CartContext {
	return middleware.CartContextFrom(r.Context())
}

// setCartID echoes the cart a handler ended up acting on so a client that
// sent no id (or a stale one) can store the resolved one.
func setCartID(w http.ResponseWriter, cartID uuid.UUID) {
	if cartID != uuid.Nil {
		w.Header().Set(middleware.CartIDHeader, cartID.String())
	}
}
