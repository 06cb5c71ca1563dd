package middleware

import (
	"net/http"

	"github.com/angelmondragon/estore-backend/pkg/logger"
	"github.com/angelmondragon/estore-backend/pkg/types"
)

// CartIDHeader carries the shopper's cart id in both directions.
const CartIDHeader = "X-Cart-Id"

// CartContext resolves the X-Cart-Id header into a types.CartContext. A blank
// or malformed id yields an empty context; handlers that need a cart create
// one and echo its id back in the same header.
func CartContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cc := types.ParseCartContext(r.Header.Get(CartIDHeader))
			ctx := WithCartContext(r.Context(), cc)
			if cc.HasCart() {
				w.Header().Set(CartIDHeader, cc.CartID.String())
				if logg != nil {
					ctx = logg.WithCartID(ctx, cc.CartID.String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
