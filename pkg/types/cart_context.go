package types

import (
	"strings"

	"github.com/google/uuid"
)

// CartContext identifies the shopper cart a request acts on. It is passed
// explicitly into every cart and order operation.
type CartContext struct {
	CartID uuid.UUID
}

// HasCart reports whether a cart id was supplied.
func (c CartContext) HasCart() bool {
	return c.CartID != uuid.Nil
}

// ParseCartContext builds a CartContext from a raw header value. Blank or
// malformed values yield an empty context so a new cart can be created.
func ParseCartContext(raw string) CartContext {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return CartContext{}
	}
	return CartContext{CartID: id}
}
